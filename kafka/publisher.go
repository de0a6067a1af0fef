// Package kafka mirrors pipeline progress events to a Kafka topic so
// external consumers can follow runs without polling the job store.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"curator/types"
)

// Publisher writes progress events to Kafka. A nil Publisher is a
// valid no-op, so callers never need to branch on configuration.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// PublisherConfig holds Kafka producer configuration.
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

// progressRecord is the wire shape of one published event.
type progressRecord struct {
	OrgID     string              `json:"org_id"`
	JobID     string              `json:"job_id"`
	Timestamp time.Time           `json:"timestamp"`
	Event     types.ProgressEvent `json:"event"`
}

// NewPublisher creates a Kafka progress publisher.
func NewPublisher(config PublisherConfig) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Publisher{producer: producer, topic: config.Topic}, nil
}

// Publish sends one progress event, keyed by job ID so a job's events
// stay ordered within a partition.
func (p *Publisher) Publish(orgID, jobID string, event types.ProgressEvent) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(progressRecord{
		OrgID:     orgID,
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Event:     event,
	})
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(jobID),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

// Close shuts down the underlying producer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.producer.Close()
}
