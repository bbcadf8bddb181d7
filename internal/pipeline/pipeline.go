// Package pipeline drives invoice attachment processing end to end: route by
// content type, extract structured fields, derive the storage name, upload,
// append the log row, and finally commit the mailbox state transition.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/invoiceflow/internal/gmail"
	"github.com/teemow/invoiceflow/internal/instrumentation"
	"github.com/teemow/invoiceflow/internal/invoice"
	"github.com/teemow/invoiceflow/internal/logging"
)

// Mailbox is the narrow mailbox contract the pipeline drives.
type Mailbox interface {
	Search(ctx context.Context, query string) ([]string, error)
	ListAttachments(ctx context.Context, messageID string) ([]*gmail.AttachmentInfo, error)
	DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
	EnsureLabel(ctx context.Context, name string) error
	MarkProcessed(ctx context.Context, messageID string) error
}

// Storage uploads processed attachments into a named folder.
type Storage interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	Upload(ctx context.Context, content []byte, name, mimeType, folderID string) (string, error)
}

// Sheet appends structured log rows.
type Sheet interface {
	EnsureHeader(ctx context.Context) error
	AppendRow(ctx context.Context, values []interface{}) error
}

// Extractor derives a structured record from attachment content.
type Extractor interface {
	Extract(ctx context.Context, content []byte, route invoice.Route) invoice.Record
}

// Config holds the processing settings the pipeline needs.
type Config struct {
	SubjectFilter  string
	ProcessedLabel string
	DriveFolder    string

	// Now returns the current time for naming and log timestamps.
	// Defaults to time.Now.
	Now func() time.Time
}

// Processor runs polling cycles against the external collaborators. All state
// lives in those systems; the processor itself only caches whether its
// one-time setup has run.
type Processor struct {
	cfg       Config
	mailbox   Mailbox
	storage   Storage
	sheet     Sheet
	extractor Extractor
	router    *invoice.Router
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	ready     bool
}

// NewProcessor creates a processor. A nil logger falls back to the default
// logger and nil metrics to a no-op recorder.
func NewProcessor(cfg Config, mailbox Mailbox, storage Storage, sheet Sheet, extractor Extractor, router *invoice.Router, logger *slog.Logger, metrics *instrumentation.Metrics) *Processor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = instrumentation.NewNopMetrics()
	}
	return &Processor{
		cfg:       cfg,
		mailbox:   mailbox,
		storage:   storage,
		sheet:     sheet,
		extractor: extractor,
		router:    router,
		metrics:   metrics,
		logger:    logging.WithService(logger, "pipeline"),
	}
}

// ensureReady performs the one-time collaborator setup: processed-label
// resolution and log header bootstrap. Failures here are fatal to the cycle.
func (p *Processor) ensureReady(ctx context.Context) error {
	if p.ready {
		return nil
	}

	if err := p.mailbox.EnsureLabel(ctx, p.cfg.ProcessedLabel); err != nil {
		return fmt.Errorf("failed to ensure processed label: %w", err)
	}
	if err := p.sheet.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("failed to ensure log header: %w", err)
	}

	p.ready = true
	return nil
}

// RunCycle runs one polling cycle: search for candidate emails and process
// each in the order the mailbox returns them. Per-email failures are isolated
// so one bad email does not abort the batch. Returns the number of fully
// committed attachments.
func (p *Processor) RunCycle(ctx context.Context) (int, error) {
	start := time.Now()

	if err := p.ensureReady(ctx); err != nil {
		return 0, err
	}

	query := gmail.BuildQuery(p.cfg.SubjectFilter)
	ids, err := p.mailbox.Search(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to search mailbox: %w", err)
	}

	if len(ids) == 0 {
		p.logger.Info("no unread target emails found")
		p.metrics.RecordCycle(ctx, time.Since(start))
		return 0, nil
	}

	total := 0
	for _, id := range ids {
		p.metrics.RecordEmail(ctx)
		total += p.safeProcessEmail(ctx, id)
	}

	p.metrics.RecordCycle(ctx, time.Since(start))
	p.logger.Info("processing complete", slog.Int(logging.KeyProcessed, total))
	return total, nil
}

// safeProcessEmail isolates a panic in one email so sibling emails are still
// attempted.
func (p *Processor) safeProcessEmail(ctx context.Context, messageID string) (n int) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing email", logging.EmailID(messageID), slog.Any("panic", r))
			n = 0
		}
	}()
	return p.ProcessEmail(ctx, messageID)
}

// ProcessEmail processes every attachment of one email and, if at least one
// was fully committed, marks the email processed exactly once afterwards.
// Emails with no committed attachment keep their mailbox state and stay
// eligible for the next cycle.
func (p *Processor) ProcessEmail(ctx context.Context, messageID string) int {
	attachments, err := p.mailbox.ListAttachments(ctx, messageID)
	if err != nil {
		p.logger.Warn("failed to list attachments", logging.EmailID(messageID), logging.Err(err))
		return 0
	}
	if len(attachments) == 0 {
		return 0
	}

	processed := 0
	for _, att := range attachments {
		if p.safeProcessAttachment(ctx, att) {
			processed++
		}
	}

	if processed > 0 {
		if err := p.mailbox.MarkProcessed(ctx, messageID); err != nil {
			// Committed uploads and log rows stand; the email stays unread
			// and will be retried next cycle.
			p.logger.Warn("failed to mark email processed", logging.EmailID(messageID), logging.Err(err))
		}
	}

	return processed
}

// safeProcessAttachment isolates a panic in one attachment so sibling
// attachments are still attempted.
func (p *Processor) safeProcessAttachment(ctx context.Context, att *gmail.AttachmentInfo) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing attachment",
				logging.EmailID(att.MessageID), logging.Filename(att.Filename), slog.Any("panic", r))
			p.metrics.RecordAttachment(ctx, instrumentation.ResultFailed)
			ok = false
		}
	}()
	return p.ProcessAttachment(ctx, att)
}

// ProcessAttachment runs one attachment through the pipeline. Every step is a
// hard gate except extraction, which degrades to the placeholder record so
// naming, upload and logging still proceed. Returns true only if upload and
// log row both succeeded.
func (p *Processor) ProcessAttachment(ctx context.Context, att *gmail.AttachmentInfo) bool {
	logger := p.logger.With(
		logging.EmailID(att.MessageID),
		logging.Filename(att.Filename),
		logging.MimeType(att.MimeType),
	)

	route := p.router.Route(att.MimeType)
	if route == invoice.RouteUnsupported {
		logger.Debug("skipping unsupported content type", logging.Status(logging.StatusSkipped))
		p.metrics.RecordAttachment(ctx, instrumentation.ResultSkipped)
		return false
	}

	content, err := p.mailbox.DownloadAttachment(ctx, att.MessageID, att.AttachmentID)
	if err != nil || len(content) == 0 {
		logger.Warn("failed to download attachment", logging.Err(err))
		p.metrics.RecordAttachment(ctx, instrumentation.ResultFailed)
		return false
	}

	rec := p.extractor.Extract(ctx, content, route)

	name := invoice.DeriveFilename(att.Filename, rec, p.cfg.Now())

	// Folder existence is re-checked per upload; creation is idempotent.
	folderID, err := p.storage.EnsureFolder(ctx, p.cfg.DriveFolder)
	if err != nil {
		logger.Warn("failed to resolve storage folder", logging.Err(err))
		p.metrics.RecordAttachment(ctx, instrumentation.ResultFailed)
		return false
	}

	fileURL, err := p.storage.Upload(ctx, content, name, att.MimeType, folderID)
	if err != nil {
		logger.Warn("failed to upload attachment", logging.Err(err))
		p.metrics.RecordAttachment(ctx, instrumentation.ResultFailed)
		return false
	}

	if err := p.sheet.AppendRow(ctx, p.logRow(rec, fileURL, att.MimeType)); err != nil {
		// The upload already happened. The attachment counts as failed so the
		// email is retried; the duplicate storage object is accepted.
		logger.Warn("failed to append log row", logging.Err(err))
		p.metrics.RecordAttachment(ctx, instrumentation.ResultFailed)
		return false
	}

	logger.Info("attachment processed", logging.Status(logging.StatusSuccess), slog.String("stored_as", name))
	p.metrics.RecordAttachment(ctx, instrumentation.ResultProcessed)
	return true
}

// logRow builds the spreadsheet row in the fixed column order.
func (p *Processor) logRow(rec invoice.Record, fileURL, fileType string) []interface{} {
	return []interface{}{
		p.cfg.Now().Format("2006-01-02 15:04:05"),
		rec.InvoiceDate,
		rec.InvoiceNumber,
		rec.TotalAmount,
		rec.VendorName,
		fileURL,
		fileType,
	}
}
