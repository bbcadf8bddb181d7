package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	// MaxAttachmentSize defines the maximum attachment size in bytes (25MB)
	MaxAttachmentSize = 25 * 1024 * 1024
)

// AttachmentInfo represents an attachment's metadata
type AttachmentInfo struct {
	MessageID    string
	PartID       string
	AttachmentID string
	Filename     string
	MimeType     string
	Size         int64
}

// GetMessage retrieves a full Gmail message
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	return msg, nil
}

// ListAttachments extracts all attachments from a message
func (c *Client) ListAttachments(ctx context.Context, messageID string) ([]*AttachmentInfo, error) {
	msg, err := c.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	return CollectAttachments(msg.Payload, messageID), nil
}

// CollectAttachments walks a message part tree and returns descriptors for
// every leaf part carrying a filename. Parts with sub-parts are containers,
// not attachments.
func CollectAttachments(payload *gmail.MessagePart, messageID string) []*AttachmentInfo {
	var attachments []*AttachmentInfo
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
			attachments = append(attachments, &AttachmentInfo{
				MessageID:    messageID,
				PartID:       part.PartId,
				AttachmentID: part.Body.AttachmentId,
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
			})
		}
	})
	return attachments
}

// DownloadAttachment retrieves the content of an attachment (returns []byte)
func (c *Client) DownloadAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" {
		return nil, fmt.Errorf("messageID is required")
	}
	if attachmentID == "" {
		return nil, fmt.Errorf("attachmentID is required")
	}

	attachment, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	// Check size limit
	if attachment.Size > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment size %d exceeds maximum size %d", attachment.Size, MaxAttachmentSize)
	}

	// Decode base64url-encoded data (Gmail API uses RFC 4648 base64url encoding)
	data, err := base64.URLEncoding.DecodeString(attachment.Data)
	if err != nil {
		// Try with standard base64 if URLEncoding fails
		data, err = base64.StdEncoding.DecodeString(attachment.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode attachment data: %w", err)
		}
	}

	return data, nil
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}
