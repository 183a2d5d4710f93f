package main

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/spf13/cobra"
)

var paymentsUser string

var paymentsCmd = &cobra.Command{
	Use:   "payments",
	Short: "List the recorded payment events for a user key",
	Long: `List the PAYMENT# records written for one user key, oldest first.

Each subscription payment or status webhook leaves one such record, so the
listing is the audit trail to check before replaying a delivery.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if paymentsUser == "" {
			return errors.New("--user is required")
		}
		ctx := cmd.Context()
		cfg := loadConfig()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		var recs []domain.Record[domain.PaymentData]
		if err := store.Query(ctx, paymentsUser, domain.PrefixPayment, &recs); err != nil {
			return fmt.Errorf("list payments for %s: %w", paymentsUser, err)
		}
		if len(recs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "no payments for %s\n", paymentsUser)
			return nil
		}
		slices.SortStableFunc(recs, func(a, b domain.Record[domain.PaymentData]) int {
			return cmp.Compare(a.Data.Timestamp, b.Data.Timestamp)
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tEVENT\tPACKAGE\tSTATUS\tUNIQUE ID")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.Data.Timestamp, paymentEvent(r.SK), r.Data.PackageID, r.Data.PackageStatus, r.Data.PackageUniqueID)
		}
		return w.Flush()
	},
}

// paymentEvent reads the event name out of PAYMENT#<event>#<product>#<id>#<ts>.
func paymentEvent(sk string) string {
	event, _, _ := strings.Cut(strings.TrimPrefix(sk, domain.PrefixPayment), "#")
	return event
}

func init() {
	paymentsCmd.Flags().StringVarP(&paymentsUser, "user", "u", "", "User key (the table partition)")
}
