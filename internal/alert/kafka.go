package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives alerts when no topic is configured.
const DefaultTopic = "oact.alerts"

// KafkaNotifier publishes alerts as JSON records keyed by alert ID.
type KafkaNotifier struct {
	client *kgo.Client
	topic  string
}

// NewKafkaNotifier connects a producer to brokers.
func NewKafkaNotifier(brokers []string, topic string, opts ...kgo.Opt) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka notifier requires at least one broker")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, topic: topic}, nil
}

func (n *KafkaNotifier) Name() string { return "kafka" }

func (n *KafkaNotifier) Notify(ctx context.Context, a Alert) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding alert %s: %w", a.ID, err)
	}
	rec := &kgo.Record{
		Topic: n.topic,
		Key:   []byte(a.ID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "priority", Value: []byte(a.Priority)},
		},
	}
	if err := n.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("producing alert %s to %s: %w", a.ID, n.topic, err)
	}
	return nil
}

// EnsureTopic creates the alert topic if it does not exist yet. A replication
// factor of -1 uses the broker default.
func (n *KafkaNotifier) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(n.client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, n.topic)
	if err != nil {
		return fmt.Errorf("creating topic %s: %w", n.topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("creating topic %s: %w", n.topic, resp.Err)
	}
	return nil
}

func (n *KafkaNotifier) Close() {
	n.client.Close()
}
