package main

import "github.com/spf13/cobra"

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Look up a wallet's registration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, _ := cmd.Flags().GetString("address")
			var resp map[string]any
			if err := apiCall("GET", "/api/wallet/status?address="+address, nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().String("address", "", "wallet Ark address")
	cmd.MarkFlagRequired("address")
	return cmd
}

func supplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Show current supply and cap",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp map[string]any
			if err := apiCall("GET", "/api/supply", nil, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}
