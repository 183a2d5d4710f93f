package main

import (
	"fmt"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/dynamo"
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the record table and enable TTL expiry",
	Long: `Create the single PK/SK record table named by DYNAMO_TABLE and enable
TTL expiry on its TTL attribute. An existing table is left alone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		client, err := dynamo.NewClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		dynamo.Bootstrap(cmd.Context(), client, cfg.DynamoTable)
		fmt.Fprintf(cmd.OutOrStdout(), "table %s ready\n", cfg.DynamoTable)
		return nil
	},
}
