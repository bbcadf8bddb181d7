// Package gmail wraps the Gmail API for searching invoice emails, fetching
// their attachments and recording the processed state on the mailbox.
package gmail

import (
	"context"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/invoiceflow/internal/google"
)

// Client wraps the Gmail Users service
type Client struct {
	svc     *gmail.UsersService
	labelID string // Cached processed-label ID, resolved by EnsureLabel
}

// HasToken checks if a valid OAuth token exists
func HasToken() bool {
	return google.HasToken()
}

// NewClient creates a new Gmail client with OAuth2 authentication.
// Returns an error if no valid token exists - use HasToken() to check first
func NewClient(ctx context.Context) (*Client, error) {
	client, err := google.GetHTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc: svc.Users,
	}, nil
}

// BuildQuery returns the Gmail search query for unread emails whose subject
// matches the configured filter.
func BuildQuery(subject string) string {
	return fmt.Sprintf("subject:%q is:unread", subject)
}

// Search returns the IDs of all messages matching the query, in the order the
// Gmail API returns them.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		req := c.svc.Messages.List("me").Q(query).Context(ctx)
		if pageToken != "" {
			req.PageToken(pageToken)
		}
		res, err := req.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to search messages: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

// EnsureLabel finds the label with the given name, creating it if it does not
// exist, and caches its ID for MarkProcessed.
func (c *Client) EnsureLabel(ctx context.Context, name string) error {
	labels, err := c.svc.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	for _, label := range labels.Labels {
		if label.Name == name {
			c.labelID = label.Id
			return nil
		}
	}

	created, err := c.svc.Labels.Create("me", &gmail.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to create label %q: %w", name, err)
	}

	c.labelID = created.Id
	return nil
}

// MarkProcessed marks a message as read and applies the processed label.
// The label is only applied if EnsureLabel resolved one.
func (c *Client) MarkProcessed(ctx context.Context, messageID string) error {
	_, err := c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", messageID, err)
	}

	if c.labelID != "" {
		_, err = c.svc.Messages.Modify("me", messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{c.labelID},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to label message %s: %w", messageID, err)
		}
	}

	return nil
}
