package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

const (
	defaultSalesEventsTopic = "huastex-sales-events"
	pubsubInitAttempts      = 5
)

// SalesEventMessage is published for every sale, payment and ledger change.
type SalesEventMessage struct {
	ID                  int       `json:"id"`
	Location            string    `json:"location"`
	TransactionDateTime time.Time `json:"transaction_date_time"`
	ReferenceId         int       `json:"reference_id"`
	ReferenceType       string    `json:"reference_type"`
	Action              string    `json:"action"`
	Payload             []byte    `json:"payload"`
	CorrelationId       string    `json:"correlation_id"`
}

// OrderingKey keeps the events of one sale (or ledger row) in order.
func (m SalesEventMessage) OrderingKey() string {
	return m.Location + ":" + m.ReferenceType + ":" + strconv.Itoa(m.ReferenceId)
}

// salesPublisher owns the Pub/Sub client and the topic handle; both are
// created on first publish so the API starts without GCP credentials.
type salesPublisher struct {
	mu     sync.Mutex
	client *pubsub.Client
	topic  *pubsub.Topic
}

var publisher salesPublisher

func pubSubProjectId() string {
	for _, key := range []string{"PUBSUB_PROJECT_ID", "GOOGLE_CLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func SalesEventsTopic() string {
	if v := os.Getenv("SALES_EVENTS_TOPIC"); v != "" {
		return v
	}
	return defaultSalesEventsTopic
}

// GetPubSubClient returns the shared client, dialing with retries on first use.
// Credentials come from PUBSUB_CREDENTIALS_JSON, else Application Default Credentials.
func GetPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if publisher.client != nil {
		return publisher.client, nil
	}

	projectId := pubSubProjectId()
	if projectId == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}
	var opts []option.ClientOption
	if credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	}

	for attempt := 1; ; attempt++ {
		client, err := pubsub.NewClient(ctx, projectId, opts...)
		if err == nil {
			log.Printf("pubsub client ready (project_id=%s attempt=%d)", projectId, attempt)
			publisher.client = client
			return client, nil
		}
		if attempt >= pubsubInitAttempts || ctx.Err() != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		sleep := retryDelay(attempt)
		log.Printf("failed to init pubsub client (project_id=%s attempt=%d): %v; retrying in %s", projectId, attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// EnsureTopic creates the topic when it does not exist yet.
func EnsureTopic(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	t := c.Topic(topic)
	exists, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// salesTopic resolves the topic once. PUBSUB_CREATE_TOPIC=true creates it when missing.
func salesTopic(ctx context.Context) (*pubsub.Topic, error) {
	client, err := GetPubSubClient(ctx)
	if err != nil {
		return nil, err
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if publisher.topic != nil {
		return publisher.topic, nil
	}
	topic := client.Topic(SalesEventsTopic())
	if envBool("PUBSUB_CREATE_TOPIC") {
		if topic, err = EnsureTopic(ctx, client, SalesEventsTopic()); err != nil {
			return nil, err
		}
	}
	topic.EnableMessageOrdering = true
	publisher.topic = topic
	return topic, nil
}

// PublishSalesEventWithResult publishes and returns the Pub/Sub server-assigned message ID.
func PublishSalesEventWithResult(ctx context.Context, msg SalesEventMessage) (string, error) {
	topic, err := salesTopic(ctx)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		OrderingKey: msg.OrderingKey(),
		Attributes: map[string]string{
			"reference_type": msg.ReferenceType,
			"action":         msg.Action,
			"location":       msg.Location,
			"correlation_id": msg.CorrelationId,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		// an ordering key stays paused after a failure until resumed
		topic.ResumePublish(msg.OrderingKey())
		return "", err
	}
	return id, nil
}
