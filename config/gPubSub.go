package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// DigestMessage is the envelope queued for the external digest worker.
// Stores with hourly/daily delivery frequency do not get immediate
// notifications; the pipeline publishes one of these instead and the worker
// batches them per store.
type DigestMessage struct {
	ShopId         string    `json:"shop_id"`
	OrderId        string    `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	RiskScore      int       `json:"risk_score"`
	RiskLevel      string    `json:"risk_level"`
	RiskFactors    []string  `json:"risk_factors"`
	Frequency      string    `json:"frequency"`
	QueuedAt       time.Time `json:"queued_at"`
	CorrelationId  string    `json:"correlation_id"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex

	digestTopic     *pubsub.Topic
	digestTopicName string
	digestTopicMu   sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	// Prefer explicit override.
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	// Common fallback.
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	if pubsubClient == nil {
		pubsubClient = c
	} else {
		// Another goroutine won the race; close ours.
		_ = c.Close()
	}
	c2 := pubsubClient
	pubsubClientMu.Unlock()

	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return c2, nil
}

func CreateTopicIfNotExists(c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if c == nil {
		return nil, errors.New("pubsub client is nil")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	ctx := context.Background()
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// ensureDigestTopic resolves the digest topic once (creating it if missing)
// and caches the handle; the existence check is one RPC we don't want on
// every publish.
func ensureDigestTopic(client *pubsub.Client, topicName string) (*pubsub.Topic, error) {
	digestTopicMu.Lock()
	defer digestTopicMu.Unlock()
	if digestTopic != nil && digestTopicName == topicName {
		return digestTopic, nil
	}
	t, err := CreateTopicIfNotExists(client, topicName)
	if err != nil {
		return nil, err
	}
	digestTopic = t
	digestTopicName = topicName
	return t, nil
}

// PublishNotificationDigest publishes one queued notification and returns the
// Pub/Sub server-assigned message ID.
func PublishNotificationDigest(ctx context.Context, msg DigestMessage) (string, error) {
	client, err := getPubSubClient(ctx)
	if err != nil {
		return "", err
	}

	topicName := os.Getenv("PUBSUB_DIGEST_TOPIC")
	if topicName == "" {
		return "", errors.New("PUBSUB_DIGEST_TOPIC is required")
	}

	t, err := ensureDigestTopic(client, topicName)
	if err != nil {
		return "", err
	}
	msgJSON, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := t.Publish(ctx, &pubsub.Message{
		Data: msgJSON,
	})

	return result.Get(ctx)
}
