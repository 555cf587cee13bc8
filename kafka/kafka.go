package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/segmentio/kafka-go"

	"probes/config"
	"probes/logger"
	"probes/models"
)

// messageReader is the subset of *kafka.Reader the consume loop needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// newReader is a test hook; tests replace it to avoid a live broker.
var newReader = func(cfg config.Broker) messageReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		StartOffset:    kafka.FirstOffset,
		SessionTimeout: cfg.SessionTimeout.Duration,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		Dialer: &kafka.Dialer{
			ClientID:  cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
}

// Handler receives each decoded message. Returning an error stops Consume.
type Handler func(ctx context.Context, msg models.ConsumedMessage) error

// Consume reads the configured topic under the configured group until ctx is
// cancelled. Read, decode and handler errors are returned unhandled.
func Consume(ctx context.Context, cfg config.Broker, handle Handler) error {
	logger.Info("starting kafka reader",
		logger.FieldKV("topic", cfg.Topic),
		logger.FieldKV("group_id", cfg.GroupID),
		logger.FieldKV("brokers", cfg.Brokers))
	r := newReader(cfg)
	defer func() {
		if err := r.Close(); err != nil {
			logger.Error("failed to close kafka reader", err)
		}
	}()

	logger.Info("ready to consume")
	for {
		if ctx.Err() != nil {
			return nil
		}
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}
		logger.Debug("message read from kafka",
			logger.FieldKV("partition", m.Partition),
			logger.FieldKV("offset", m.Offset))

		ev, err := Decode(m.Value)
		if err != nil {
			return fmt.Errorf("decode message at %s[%d]@%d: %w", m.Topic, m.Partition, m.Offset, err)
		}
		msg := models.ConsumedMessage{
			Topic:     m.Topic,
			Partition: m.Partition,
			Offset:    m.Offset,
			Key:       string(m.Key),
			Time:      m.Time,
			Event:     ev,
		}
		if err := handle(ctx, msg); err != nil {
			return err
		}
	}
}

var errNotObject = errors.New("message value is not a JSON object")

// Decode turns a message value into text and parses it as a JSON object.
// Numbers are kept as json.Number so large integers print exactly.
func Decode(value []byte) (models.Event, error) {
	if !utf8.Valid(value) {
		return nil, errors.New("message value is not valid UTF-8")
	}
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	var ev models.Event
	if err := dec.Decode(&ev); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse event: trailing data after JSON object")
	}
	if ev == nil {
		return nil, errNotObject
	}
	return ev, nil
}
