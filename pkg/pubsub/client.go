package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

var (
	errProjectIDRequired = errors.New("pubsub project id is required")
	errNoTopic           = errors.New("pubsub domain topic is required")
	errClosed            = errors.New("pubsub client closed")
)

// Message is one domain event on its way to a topic. Messages sharing an
// OrderingKey are delivered in publish order.
type Message struct {
	Topic       string
	OrderingKey string
	Data        []byte
	Attributes  map[string]string
}

// Client owns the Pub/Sub connection and one ordered publisher per topic.
type Client struct {
	client    *pubsub.Client
	projectID string
	domain    string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
	closed     bool
}

// NewClient connects to Pub/Sub and verifies the domain topic exists.
func NewClient(ctx context.Context, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if TopicResourceName(cfg.ProjectID, cfg.DomainTopic) == "" {
		return nil, errNoTopic
	}

	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:     psClient,
		projectID:  cfg.ProjectID,
		domain:     cfg.DomainTopic,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.topicExists(ctx, cfg.DomainTopic); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", cfg.DomainTopic), "pubsub client initialized")
	}
	return c, nil
}

func (c *Client) topicExists(ctx context.Context, name string) error {
	fullName := TopicResourceName(c.projectID, name)
	if fullName == "" {
		return errNoTopic
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("topic %q does not exist", name)
	default:
		return fmt.Errorf("checking topic %q: %w", name, err)
	}
}

// DomainTopic is the topic marketplace events go to when none is named.
func (c *Client) DomainTopic() string { return c.domain }

func (c *Client) publisher(topic string) (*pubsub.Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errClosed
	}
	fullName := TopicResourceName(c.projectID, topic)
	if fullName == "" {
		return nil, errNoTopic
	}
	if p, ok := c.publishers[fullName]; ok {
		return p, nil
	}
	p := c.client.Publisher(fullName)
	p.EnableMessageOrdering = true
	c.publishers[fullName] = p
	return p, nil
}

// Send publishes msg and waits for the server id. A failed ordered publish
// pauses its key inside the library, so the key is resumed before returning
// to let the next attempt through.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c == nil || c.client == nil {
		return "", errClosed
	}
	topic := msg.Topic
	if strings.TrimSpace(topic) == "" {
		topic = c.domain
	}
	p, err := c.publisher(topic)
	if err != nil {
		return "", err
	}
	id, err := p.Publish(ctx, &pubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.OrderingKey,
	}).Get(ctx)
	if err != nil {
		if msg.OrderingKey != "" {
			p.ResumePublish(msg.OrderingKey)
		}
		return "", err
	}
	return id, nil
}

// Ping checks the domain topic is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errClosed
	}
	return c.topicExists(ctx, c.domain)
}

// Close flushes every publisher and closes the connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	c.closed = true
	pubs := c.publishers
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()

	for _, p := range pubs {
		p.Stop()
	}
	return c.client.Close()
}

// TopicResourceName expands a topic id into projects/<p>/topics/<id>. Full
// resource names pass through.
func TopicResourceName(projectID, name string) string {
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
