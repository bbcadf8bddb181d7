package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/invoiceflow/internal/config"
	"github.com/teemow/invoiceflow/internal/drive"
	"github.com/teemow/invoiceflow/internal/gmail"
	"github.com/teemow/invoiceflow/internal/google"
	"github.com/teemow/invoiceflow/internal/groq"
	"github.com/teemow/invoiceflow/internal/instrumentation"
	"github.com/teemow/invoiceflow/internal/invoice"
	"github.com/teemow/invoiceflow/internal/logging"
	"github.com/teemow/invoiceflow/internal/pdf"
	"github.com/teemow/invoiceflow/internal/pipeline"
	"github.com/teemow/invoiceflow/internal/sheets"
)

func newProcessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Run one processing cycle over unread invoice emails",
		Long: `Search the Gmail inbox for unread emails matching the configured subject
filter and process their attachments: extract invoice fields, upload each
attachment to Drive under a derived name and append a row to the Sheets log.
Emails with at least one committed attachment are marked read and labeled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.Setup(cfg.LogLevel)
			ctx := cmd.Context()

			processor, err := buildProcessor(ctx, cfg, logger, instrumentation.NewNopMetrics())
			if err != nil {
				return err
			}

			n, err := processor.RunCycle(ctx)
			if err != nil {
				return fmt.Errorf("processing cycle failed: %w", err)
			}

			logger.Info("cycle finished", slog.Int(logging.KeyProcessed, n))
			return nil
		},
	}
}

// buildProcessor wires the external service clients into a pipeline processor.
func buildProcessor(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*pipeline.Processor, error) {
	if !google.HasToken() {
		return nil, fmt.Errorf("no cached Google token found; run 'invoiceflow auth' first")
	}

	gmailClient, err := gmail.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail client: %w", err)
	}

	driveClient, err := drive.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}

	sheetsClient, err := sheets.NewClient(ctx, cfg.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}

	inference := instrumentation.NewInstrumentedInference(
		groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL),
		metrics,
	)
	extractor := invoice.NewExtractor(inference, pdf.NewRasterizer(), logger)
	router := invoice.NewRouter(cfg.AllowedTypes)

	pipelineCfg := pipeline.Config{
		SubjectFilter:  cfg.SubjectFilter,
		ProcessedLabel: cfg.ProcessedLabel,
		DriveFolder:    cfg.DriveFolder,
	}

	return pipeline.NewProcessor(pipelineCfg, gmailClient, driveClient, sheetsClient, extractor, router, logger, metrics), nil
}
