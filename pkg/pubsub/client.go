package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/partnerhub-backend/pkg/config"
	"github.com/angelmondragon/partnerhub-backend/pkg/logger"
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var errProjectIDRequired = errors.New("gcp project id is required")

// NewClient creates a Pub/Sub v2 client and verifies the license topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: gcp.ProjectID, cfg: cfg}
	if err := c.ensureTopicExists(ctx, cfg.LicenseTopic); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", cfg.LicenseTopic), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) ensureTopicExists(ctx context.Context, name string) error {
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return fmt.Errorf("topic %q not configured", name)
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist", name)
		}
		return fmt.Errorf("checking topic %q: %w", name, err)
	}
	return nil
}

// Publisher returns a publisher for the given topic ID or resource name.
func (c *Client) Publisher(name string) *TopicPublisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	return &TopicPublisher{publisher: c.client.Publisher(fullName)}
}

// LicensePublisher returns the publisher for license notifications.
func (c *Client) LicensePublisher() *TopicPublisher {
	return c.Publisher(c.cfg.LicenseTopic)
}

// Ping verifies Pub/Sub connectivity by checking the license topic.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ensureTopicExists(ctx, c.cfg.LicenseTopic)
}

// Close releases the Pub/Sub client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	if c == nil {
		return ""
	}
	return topicResourceName(c.projectID, name)
}

func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}

// TopicPublisher publishes synchronously, waiting for the server ack.
type TopicPublisher struct {
	publisher *pubsub.Publisher
}

// Publish sends data with attributes and blocks until the server assigns an ID.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	if p == nil || p.publisher == nil {
		return "", errors.New("pubsub publisher not initialized")
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages.
func (p *TopicPublisher) Stop() {
	if p == nil || p.publisher == nil {
		return
	}
	p.publisher.Stop()
}
