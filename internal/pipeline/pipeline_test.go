package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/invoiceflow/internal/gmail"
	"github.com/teemow/invoiceflow/internal/invoice"
)

type fakeMailbox struct {
	searchIDs   []string
	searchErr   error
	attachments map[string][]*gmail.AttachmentInfo
	listErr     map[string]error
	content     map[string][]byte
	downloadErr map[string]error

	ensureLabelErr   error
	ensureLabelCalls int
	markErr          error
	marked           []string
	downloads        []string
}

func (f *fakeMailbox) Search(ctx context.Context, query string) ([]string, error) {
	return f.searchIDs, f.searchErr
}

func (f *fakeMailbox) ListAttachments(ctx context.Context, messageID string) ([]*gmail.AttachmentInfo, error) {
	if err := f.listErr[messageID]; err != nil {
		return nil, err
	}
	return f.attachments[messageID], nil
}

func (f *fakeMailbox) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	f.downloads = append(f.downloads, attachmentID)
	if err := f.downloadErr[attachmentID]; err != nil {
		return nil, err
	}
	return f.content[attachmentID], nil
}

func (f *fakeMailbox) EnsureLabel(ctx context.Context, name string) error {
	f.ensureLabelCalls++
	return f.ensureLabelErr
}

func (f *fakeMailbox) MarkProcessed(ctx context.Context, messageID string) error {
	f.marked = append(f.marked, messageID)
	return f.markErr
}

type fakeStorage struct {
	folderErr error
	uploadErr error
	uploads   []string
}

func (f *fakeStorage) EnsureFolder(ctx context.Context, name string) (string, error) {
	if f.folderErr != nil {
		return "", f.folderErr
	}
	return "folder-1", nil
}

func (f *fakeStorage) Upload(ctx context.Context, content []byte, name, mimeType, folderID string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, name)
	return "https://drive.example/" + name, nil
}

type fakeSheet struct {
	headerErr error
	appendErr error
	rows      [][]interface{}
}

func (f *fakeSheet) EnsureHeader(ctx context.Context) error {
	return f.headerErr
}

func (f *fakeSheet) AppendRow(ctx context.Context, values []interface{}) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, values)
	return nil
}

type fakeExtractor struct {
	rec    invoice.Record
	panics bool
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, content []byte, route invoice.Route) invoice.Record {
	f.calls++
	if f.panics {
		panic("extractor exploded")
	}
	return f.rec
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
}

func newTestProcessor(mailbox *fakeMailbox, storage *fakeStorage, sheet *fakeSheet, extractor *fakeExtractor) *Processor {
	cfg := Config{
		SubjectFilter:  "Viable: Trial Document",
		ProcessedLabel: "Processed",
		DriveFolder:    "Viable Test Documents",
		Now:            fixedNow,
	}
	router := invoice.NewRouter([]string{"application/pdf", "image/jpeg", "image/png", "message/rfc822"})
	return NewProcessor(cfg, mailbox, storage, sheet, extractor, router, nil, nil)
}

func pdfAttachment(messageID, attachmentID string) *gmail.AttachmentInfo {
	return &gmail.AttachmentInfo{
		MessageID:    messageID,
		AttachmentID: attachmentID,
		Filename:     "invoice.pdf",
		MimeType:     "application/pdf",
	}
}

func TestProcessAttachmentSuccess(t *testing.T) {
	mailbox := &fakeMailbox{
		content: map[string][]byte{"att-1": []byte("%PDF-1.4 data")},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{rec: invoice.Record{
		VendorName:    "Acme Corp",
		InvoiceDate:   "15.03.2024",
		InvoiceNumber: "INV-42",
		TotalAmount:   "99.50",
	}}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	ok := p.ProcessAttachment(context.Background(), pdfAttachment("msg-1", "att-1"))
	require.True(t, ok)

	require.Len(t, storage.uploads, 1)
	assert.Equal(t, "15.03.2024_Acme Corp_INV-42_99.50.pdf", storage.uploads[0])

	require.Len(t, sheet.rows, 1)
	row := sheet.rows[0]
	require.Len(t, row, 7)
	assert.Equal(t, "2024-03-15 10:30:00", row[0])
	assert.Equal(t, "15.03.2024", row[1])
	assert.Equal(t, "INV-42", row[2])
	assert.Equal(t, "99.50", row[3])
	assert.Equal(t, "Acme Corp", row[4])
	assert.Equal(t, "https://drive.example/15.03.2024_Acme Corp_INV-42_99.50.pdf", row[5])
	assert.Equal(t, "application/pdf", row[6])
}

func TestProcessAttachmentUnsupportedTypeSkipsDownload(t *testing.T) {
	mailbox := &fakeMailbox{}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	att := &gmail.AttachmentInfo{
		MessageID:    "msg-1",
		AttachmentID: "att-1",
		Filename:     "notes.zip",
		MimeType:     "application/zip",
	}

	ok := p.ProcessAttachment(context.Background(), att)
	assert.False(t, ok)
	assert.Empty(t, mailbox.downloads)
	assert.Zero(t, extractor.calls)
	assert.Empty(t, storage.uploads)
	assert.Empty(t, sheet.rows)
}

func TestProcessAttachmentDownloadFailures(t *testing.T) {
	tests := []struct {
		name        string
		content     []byte
		downloadErr error
	}{
		{name: "download error", downloadErr: errors.New("transport failed")},
		{name: "empty payload", content: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailbox := &fakeMailbox{
				content:     map[string][]byte{"att-1": tt.content},
				downloadErr: map[string]error{},
			}
			if tt.downloadErr != nil {
				mailbox.downloadErr["att-1"] = tt.downloadErr
			}
			storage := &fakeStorage{}
			sheet := &fakeSheet{}
			extractor := &fakeExtractor{}

			p := newTestProcessor(mailbox, storage, sheet, extractor)

			ok := p.ProcessAttachment(context.Background(), pdfAttachment("msg-1", "att-1"))
			assert.False(t, ok)
			assert.Zero(t, extractor.calls)
			assert.Empty(t, storage.uploads)
		})
	}
}

func TestProcessAttachmentUploadFailureSkipsLogRow(t *testing.T) {
	mailbox := &fakeMailbox{
		content: map[string][]byte{"att-1": []byte("data")},
	}
	storage := &fakeStorage{uploadErr: errors.New("quota exceeded")}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{rec: invoice.DefaultRecord()}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	ok := p.ProcessAttachment(context.Background(), pdfAttachment("msg-1", "att-1"))
	assert.False(t, ok)
	assert.Empty(t, sheet.rows)
}

func TestProcessAttachmentAppendFailureAfterUpload(t *testing.T) {
	mailbox := &fakeMailbox{
		content: map[string][]byte{"att-1": []byte("data")},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{appendErr: errors.New("sheet unavailable")}
	extractor := &fakeExtractor{rec: invoice.DefaultRecord()}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	// The upload commits before the log row fails; the attachment still does
	// not count as processed.
	ok := p.ProcessAttachment(context.Background(), pdfAttachment("msg-1", "att-1"))
	assert.False(t, ok)
	assert.Len(t, storage.uploads, 1)
}

func TestProcessEmailMarksOncePerEmail(t *testing.T) {
	mailbox := &fakeMailbox{
		attachments: map[string][]*gmail.AttachmentInfo{
			"msg-1": {
				pdfAttachment("msg-1", "att-1"),
				pdfAttachment("msg-1", "att-2"),
				pdfAttachment("msg-1", "att-3"),
			},
		},
		content: map[string][]byte{
			"att-1": []byte("one"),
			"att-2": []byte("two"),
			"att-3": []byte("three"),
		},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{rec: invoice.DefaultRecord()}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	n := p.ProcessEmail(context.Background(), "msg-1")
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"msg-1"}, mailbox.marked)
}

func TestProcessEmailNoCommitWithoutProcessedAttachment(t *testing.T) {
	mailbox := &fakeMailbox{
		attachments: map[string][]*gmail.AttachmentInfo{
			"msg-1": {pdfAttachment("msg-1", "att-1")},
		},
		downloadErr: map[string]error{"att-1": errors.New("gone")},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	n := p.ProcessEmail(context.Background(), "msg-1")
	assert.Zero(t, n)
	assert.Empty(t, mailbox.marked)
}

func TestProcessEmailNoAttachments(t *testing.T) {
	mailbox := &fakeMailbox{
		attachments: map[string][]*gmail.AttachmentInfo{"msg-1": nil},
	}
	p := newTestProcessor(mailbox, &fakeStorage{}, &fakeSheet{}, &fakeExtractor{})

	n := p.ProcessEmail(context.Background(), "msg-1")
	assert.Zero(t, n)
	assert.Empty(t, mailbox.marked)
}

func TestProcessEmailPartialSuccessStillCommits(t *testing.T) {
	mailbox := &fakeMailbox{
		attachments: map[string][]*gmail.AttachmentInfo{
			"msg-1": {
				pdfAttachment("msg-1", "att-1"),
				pdfAttachment("msg-1", "att-2"),
			},
		},
		content:     map[string][]byte{"att-2": []byte("good")},
		downloadErr: map[string]error{"att-1": errors.New("gone")},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{rec: invoice.DefaultRecord()}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	n := p.ProcessEmail(context.Background(), "msg-1")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"msg-1"}, mailbox.marked)
}

func TestRunCycleSetupFailureIsFatal(t *testing.T) {
	mailbox := &fakeMailbox{ensureLabelErr: errors.New("labels api down")}
	p := newTestProcessor(mailbox, &fakeStorage{}, &fakeSheet{}, &fakeExtractor{})

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure processed label")
}

func TestRunCycleHeaderFailureIsFatal(t *testing.T) {
	sheet := &fakeSheet{headerErr: errors.New("spreadsheet missing")}
	p := newTestProcessor(&fakeMailbox{}, &fakeStorage{}, sheet, &fakeExtractor{})

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ensure log header")
}

func TestRunCycleSetupRunsOnce(t *testing.T) {
	mailbox := &fakeMailbox{}
	p := newTestProcessor(mailbox, &fakeStorage{}, &fakeSheet{}, &fakeExtractor{})

	for i := 0; i < 3; i++ {
		n, err := p.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Equal(t, 1, mailbox.ensureLabelCalls)
}

func TestRunCycleSearchFailure(t *testing.T) {
	mailbox := &fakeMailbox{searchErr: errors.New("backend unavailable")}
	p := newTestProcessor(mailbox, &fakeStorage{}, &fakeSheet{}, &fakeExtractor{})

	_, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to search mailbox")
}

func TestRunCycleIsolatesBadEmail(t *testing.T) {
	mailbox := &fakeMailbox{
		searchIDs: []string{"msg-bad", "msg-good"},
		attachments: map[string][]*gmail.AttachmentInfo{
			"msg-good": {pdfAttachment("msg-good", "att-1")},
		},
		listErr: map[string]error{"msg-bad": errors.New("not found")},
		content: map[string][]byte{"att-1": []byte("data")},
	}
	storage := &fakeStorage{}
	sheet := &fakeSheet{}
	extractor := &fakeExtractor{rec: invoice.DefaultRecord()}

	p := newTestProcessor(mailbox, storage, sheet, extractor)

	n, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"msg-good"}, mailbox.marked)
}

func TestProcessEmailIsolatesAttachmentPanic(t *testing.T) {
	mailbox := &fakeMailbox{
		attachments: map[string][]*gmail.AttachmentInfo{
			"msg-1": {pdfAttachment("msg-1", "att-1")},
		},
		content: map[string][]byte{"att-1": []byte("data")},
	}
	extractor := &fakeExtractor{panics: true}

	p := newTestProcessor(mailbox, &fakeStorage{}, &fakeSheet{}, extractor)

	n := p.ProcessEmail(context.Background(), "msg-1")
	assert.Zero(t, n)
	assert.Empty(t, mailbox.marked)
}
