package main

import "github.com/spf13/cobra"

func buyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy",
		Short: "Execute the atomic swap for a deposited listing",
		RunE: func(cmd *cobra.Command, args []string) error {
			punkID, _ := cmd.Flags().GetString("punk")
			buyer, _ := cmd.Flags().GetString("buyer")
			buyerPubkey, _ := cmd.Flags().GetString("buyer-pubkey")

			req := map[string]any{
				"punkId":          punkID,
				"buyerArkAddress": buyer,
				"buyerPubkey":     buyerPubkey,
			}
			var resp map[string]any
			if err := apiCall("POST", "/api/escrow/execute", req, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().String("punk", "", "punk id (hex)")
	cmd.Flags().String("buyer", "", "buyer Ark address")
	cmd.Flags().String("buyer-pubkey", "", "buyer x-only pubkey (hex)")
	cmd.MarkFlagRequired("punk")
	cmd.MarkFlagRequired("buyer")
	cmd.MarkFlagRequired("buyer-pubkey")
	return cmd
}
