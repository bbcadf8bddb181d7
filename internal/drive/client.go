// Package drive wraps the Google Drive API for storing processed invoice
// attachments in a dedicated folder.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/invoiceflow/internal/google"
)

const (
	// FolderMimeType is the MIME type for Google Drive folders
	FolderMimeType = "application/vnd.google-apps.folder"
)

// Client wraps the Google Drive API service
type Client struct {
	service *drive.Service
}

// HasToken checks if a valid OAuth token exists
func HasToken() bool {
	return google.HasToken()
}

// NewClient creates a new Google Drive client with OAuth2 authentication.
// Returns an error if no valid token exists - use HasToken() to check first
func NewClient(ctx context.Context) (*Client, error) {
	client, err := google.GetHTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	driveService, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: driveService,
	}, nil
}

// EnsureFolder returns the ID of the folder with the given name, creating it
// if it does not exist. Trashed folders are ignored. Creation is idempotent in
// the checked-then-create sense; Drive itself does not enforce unique names.
func (c *Client) EnsureFolder(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("folder name is required")
	}

	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	list, err := c.service.Files.List().
		Context(ctx).
		Q(query).
		Spaces("drive").
		Fields("files(id, name)").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder %q: %w", name, err)
	}

	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := c.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}).
		Context(ctx).
		Fields("id, name").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}

	return folder.Id, nil
}

// Upload stores the given content as a new file in the folder and returns its
// web view link. Identical names produce distinct files; Drive does not
// enforce uniqueness.
func (c *Client) Upload(ctx context.Context, content []byte, name, mimeType, folderID string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	if folderID == "" {
		return "", fmt.Errorf("folderID is required")
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}

	driveFile, err := c.service.Files.Create(file).
		Context(ctx).
		Media(bytes.NewReader(content), googleapi.ContentType(mimeType)).
		Fields("id, webViewLink").
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file %q: %w", name, err)
	}

	return driveFile.WebViewLink, nil
}

// escapeQuery escapes a string literal for use in a Drive query expression.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
