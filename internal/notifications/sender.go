package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/partnerhub-backend/pkg/db/models"
	"github.com/angelmondragon/partnerhub-backend/pkg/enums"
)

// Message is a transport-neutral notification.
type Message struct {
	Audience   enums.UserRole         `json:"audience"`
	Type       enums.NotificationType `json:"type"`
	Title      string                 `json:"title"`
	Body       string                 `json:"body"`
	Link       string                 `json:"link,omitempty"`
	Attributes map[string]string      `json:"attributes,omitempty"`
}

// Sender delivers a message. An error means nothing was delivered.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// InboxSender stores messages in the in-app notifications table.
type InboxSender struct {
	repo creator
	now  func() time.Time
}

// NewInboxSender returns a sender backed by the notifications repository.
func NewInboxSender(repo creator) (*InboxSender, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &InboxSender{repo: repo, now: time.Now}, nil
}

func (s *InboxSender) Send(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	notification := &models.Notification{
		ID:        uuid.New(),
		Audience:  msg.Audience,
		Type:      msg.Type,
		Title:     strings.TrimSpace(msg.Title),
		Message:   strings.TrimSpace(msg.Body),
		CreatedAt: s.now().UTC(),
	}
	if link := strings.TrimSpace(msg.Link); link != "" {
		notification.Link = &link
	}
	return s.repo.Create(ctx, notification)
}

type publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// PubSubSender publishes messages as JSON to a Pub/Sub topic so an external
// mailer can fan them out.
type PubSubSender struct {
	publisher publisher
}

// NewPubSubSender wraps a topic publisher.
func NewPubSubSender(p publisher) (*PubSubSender, error) {
	if p == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubSender{publisher: p}, nil
}

func (s *PubSubSender) Send(ctx context.Context, msg Message) error {
	if err := validateMessage(msg); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	attrs := map[string]string{
		"notification_type": string(msg.Type),
		"audience":          string(msg.Audience),
	}
	for k, v := range msg.Attributes {
		attrs[k] = v
	}
	if _, err := s.publisher.Publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if !msg.Audience.IsValid() {
		return fmt.Errorf("invalid audience %q", msg.Audience)
	}
	if !msg.Type.IsValid() {
		return fmt.Errorf("invalid notification type %q", msg.Type)
	}
	if strings.TrimSpace(msg.Title) == "" {
		return fmt.Errorf("notification title required")
	}
	return nil
}
