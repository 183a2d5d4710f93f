package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/diagnostics"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/application/lifecycle"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/config"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/domain"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/dynamo"
	s3infra "github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/infrastructure/s3"
	"github.com/JayangaVLiyanage/SpeechGenAI-AWS-Lambda/internal/pkg/signature"
	"github.com/spf13/cobra"
)

type recordStore interface {
	Get(ctx context.Context, key domain.Key, out any) error
	Put(ctx context.Context, e domain.Entity) error
	Update(ctx context.Context, key domain.Key, u *domain.Update) error
	Delete(ctx context.Context, key domain.Key) (bool, error)
	Query(ctx context.Context, pk, prefix string, out any) error
}

// Swapped in tests.
var (
	openStore = func(ctx context.Context, cfg *config.Config) (recordStore, error) {
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return dynamo.NewTable(client, cfg.DynamoTable), nil
	}
	fetchArchived = func(ctx context.Context, cfg *config.Config, key string) ([]byte, error) {
		if cfg.PayloadArchiveBucket == "" {
			return nil, errors.New("PAYLOAD_ARCHIVE_BUCKET not set")
		}
		client, err := s3infra.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s3infra.NewArchive(client, cfg.PayloadArchiveBucket).Get(ctx, key)
	}
)

var (
	replayFile      string
	replayKey       string
	replaySignature string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a stored webhook payload through the package lifecycle",
	Long: `Run a webhook payload through the package lifecycle against the live
record store.

With --file the payload must come with the X-Signature value it was
delivered with (--signature). With --key the payload is read from the
archive bucket, which only holds bodies that already passed verification.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		cfg := loadConfig()

		body, err := replayBody(ctx, cfg)
		if err != nil {
			return err
		}
		ev, err := lifecycle.DecodeEvent(body)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		log := slog.Default()
		engine := lifecycle.NewService(lifecycle.ServiceDeps{
			Store:           store,
			Diagnostics:     diagnostics.NewRecorder(store, log),
			Logger:          log,
			PollIntervals:   cfg.Correlation.PollIntervals,
			MaxReads:        cfg.Correlation.MaxReads,
			FreshnessWindow: cfg.Correlation.FreshnessWindow,
			TempRecordTTL:   cfg.Correlation.TempRecordTTL,
		})
		res, err := engine.Process(ctx, ev)
		if err != nil {
			return fmt.Errorf("replay %s for %s: %w", ev.Name, ev.UserKey, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: outcome=%s status=%s\n", ev.Name, res.Outcome, res.Status)
		return nil
	},
}

func replayBody(ctx context.Context, cfg *config.Config) ([]byte, error) {
	switch {
	case replayFile != "" && replayKey != "":
		return nil, errors.New("use either --file or --key")
	case replayKey != "":
		return fetchArchived(ctx, cfg, replayKey)
	case replayFile != "":
		body, err := os.ReadFile(replayFile)
		if err != nil {
			return nil, err
		}
		if err := signature.NewVerifier(cfg.WebhookSecret).Verify(body, replaySignature); err != nil {
			return nil, err
		}
		return body, nil
	default:
		return nil, errors.New("one of --file or --key is required")
	}
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Payload file")
	replayCmd.Flags().StringVarP(&replayKey, "key", "k", "", "Archive object key")
	replayCmd.Flags().StringVar(&replaySignature, "signature", "", "X-Signature the payload was delivered with")
}
