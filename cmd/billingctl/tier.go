package main

import (
	"fmt"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/spf13/cobra"
)

var (
	tierProduct   string
	tierRemaining int
)

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Print the throttle tier for a product and remaining allowance",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		product := domain.ProductByKey(tierProduct)
		if product.Key != tierProduct {
			return fmt.Errorf("unknown product %q", tierProduct)
		}
		tier := domain.ResolveThrottle(&product, tierRemaining)
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%d/%d remaining)\n", tier.Key, tierRemaining, product.Allowance)
		return nil
	},
}

func init() {
	tierCmd.Flags().StringVarP(&tierProduct, "product", "p", domain.ProductOneMonth, "Product key")
	tierCmd.Flags().IntVarP(&tierRemaining, "remaining", "r", 0, "Remaining speech count")
}
