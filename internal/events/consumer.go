package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ogulcanaydogan/pfm-alerts/pkg/model"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransactionRecorder persists an incoming transaction before evaluation.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, txn *model.Transaction) error
}

// TransactionEvaluator runs the event-triggered alert kinds for one transaction.
type TransactionEvaluator interface {
	EvaluateTransaction(ctx context.Context, txn model.Transaction) ([]model.Notification, error)
}

// ReaderConfig configures the Kafka reader.
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewReader creates a consumer-group reader. Offsets are committed explicitly.
func NewReader(cfg ReaderConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers cannot be empty")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}
	if strings.TrimSpace(cfg.GroupID) == "" {
		return nil, errors.New("kafka group id cannot be empty")
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	}), nil
}

// Consumer reads transaction events and evaluates them.
type Consumer struct {
	reader    MessageReader
	recorder  TransactionRecorder
	evaluator TransactionEvaluator
	logger    *slog.Logger
	now       func() time.Time
}

// NewConsumer creates a consumer. recorder may be nil when transactions are already
// persisted by their producer.
func NewConsumer(reader MessageReader, recorder TransactionRecorder, evaluator TransactionEvaluator, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader:    reader,
		recorder:  recorder,
		evaluator: evaluator,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes until ctx is done. Every fetched message is committed, including ones
// that fail to decode or evaluate, so one bad message cannot stall the partition.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("transaction consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("transaction consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch transaction message: %w", err)
		}

		c.Handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit transaction message failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

// Handle processes one message and returns the notifications it produced.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) []model.Notification {
	ev, err := Decode(msg.Value)
	if err != nil {
		c.logger.Warn("dropping undecodable transaction message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	txn := ev.Transaction(c.now())
	if c.recorder != nil {
		if err := c.recorder.RecordTransaction(ctx, &txn); err != nil {
			c.logger.Error("record transaction failed",
				"transaction_id", txn.ID,
				"user_id", txn.UserID,
				"error", err,
			)
			return nil
		}
	}

	notes, err := c.evaluator.EvaluateTransaction(ctx, txn)
	if err != nil {
		c.logger.Error("evaluate transaction failed",
			"transaction_id", txn.ID,
			"user_id", txn.UserID,
			"error", err,
		)
	}
	if len(notes) > 0 {
		c.logger.Info("transaction triggered alerts",
			"transaction_id", txn.ID,
			"user_id", txn.UserID,
			"notifications", len(notes),
		)
	}
	return notes
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
