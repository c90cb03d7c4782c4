package main

import "github.com/spf13/cobra"

func cancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			punkID, _ := cmd.Flags().GetString("punk")
			seller, _ := cmd.Flags().GetString("seller")

			req := map[string]any{"punkId": punkID, "sellerAddress": seller}
			var resp map[string]any
			if err := apiCall("POST", "/api/escrow/cancel", req, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().String("punk", "", "punk id (hex)")
	cmd.Flags().String("seller", "", "seller Ark address")
	cmd.MarkFlagRequired("punk")
	cmd.MarkFlagRequired("seller")
	return cmd
}
