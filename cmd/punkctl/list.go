package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Open an escrow listing for a punk",
		RunE: func(cmd *cobra.Command, args []string) error {
			punkID, _ := cmd.Flags().GetString("punk")
			seller, _ := cmd.Flags().GetString("seller")
			sellerPubkey, _ := cmd.Flags().GetString("seller-pubkey")
			price, _ := cmd.Flags().GetUint64("price")

			req := map[string]any{
				"punkId":           punkID,
				"sellerArkAddress": seller,
				"sellerPubkey":     sellerPubkey,
				"price":            price,
			}
			var resp map[string]any
			if err := apiCall("POST", "/api/escrow/list", req, &resp); err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().String("punk", "", "punk id (hex)")
	cmd.Flags().String("seller", "", "seller Ark address")
	cmd.Flags().String("seller-pubkey", "", "seller x-only pubkey (hex)")
	cmd.Flags().Uint64("price", 0, "listing price in sats")
	cmd.MarkFlagRequired("punk")
	cmd.MarkFlagRequired("seller")
	cmd.MarkFlagRequired("seller-pubkey")
	cmd.MarkFlagRequired("price")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
