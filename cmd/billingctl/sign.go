package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/signature"
	"github.com/spf13/cobra"
)

var signSecret string

var signCmd = &cobra.Command{
	Use:   "sign <payload-file>",
	Short: "Print the X-Signature header value for a webhook payload",
	Long: `Print the hex HMAC-SHA256 signature of a payload file, as the payment
provider would send it in X-Signature. The secret defaults to
LEMON_SQUEEZY_WEBHOOK_SIGNATURE.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := signSecret
		if secret == "" {
			secret = loadConfig().WebhookSecret
		}
		if secret == "" {
			return errors.New("no signing secret: pass --secret or set LEMON_SQUEEZY_WEBHOOK_SIGNATURE")
		}
		body, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), signature.Sign([]byte(secret), body))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVarP(&signSecret, "secret", "s", "", "Webhook signing secret")
}
