package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/segmentio/kafka-go"

	"probes/config"
	"probes/models"
)

// publisher is satisfied by *kafka.Client.
type publisher interface {
	Produce(ctx context.Context, req *kafka.ProduceRequest) (*kafka.ProduceResponse, error)
}

// newPublisher is a test hook. The returned func releases idle connections.
var newPublisher = func(cfg config.Broker) (publisher, func()) {
	transport := &kafka.Transport{ClientID: cfg.ClientID}
	c := &kafka.Client{
		Addr:      kafka.TCP(cfg.Brokers...),
		Timeout:   cfg.AckTimeout.Duration,
		Transport: transport,
	}
	return c, transport.CloseIdleConnections
}

// ErrorKind classifies a failed publish.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindTimeout
	KindBroker
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTimeout:
		return "timeout"
	case KindBroker:
		return "broker"
	case KindTransport:
		return "transport"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Result is the outcome of Produce: Metadata on success, Err and Kind on failure.
type Result struct {
	Metadata *models.RecordMetadata
	Err      error
	Kind     ErrorKind
}

func (r Result) OK() bool { return r.Err == nil && r.Metadata != nil }

func failed(kind ErrorKind, err error) Result {
	return Result{Err: err, Kind: kind}
}

// Produce publishes the configured payload once and waits up to the ack
// timeout. It never retries; the caller decides what to do with a failure.
func Produce(ctx context.Context, cfg config.Broker) Result {
	p, release := newPublisher(cfg)
	defer release()

	ctx, cancel := context.WithTimeout(ctx, cfg.AckTimeout.Duration)
	defer cancel()

	res, err := p.Produce(ctx, &kafka.ProduceRequest{
		Topic:        cfg.Topic,
		Partition:    cfg.Partition,
		RequiredAcks: kafka.RequireOne,
		Records:      kafka.NewRecordReader(kafka.Record{Value: kafka.NewBytes([]byte(cfg.Payload))}),
	})
	if err != nil {
		err = fmt.Errorf("produce to %s[%d]: %w", cfg.Topic, cfg.Partition, err)
		if isTimeout(ctx, err) {
			return failed(KindTimeout, err)
		}
		return failed(KindTransport, err)
	}
	if res == nil {
		return failed(KindTransport, fmt.Errorf("produce to %s[%d]: empty response", cfg.Topic, cfg.Partition))
	}
	if res.Error != nil {
		return failed(KindBroker, fmt.Errorf("produce to %s[%d]: %w", cfg.Topic, cfg.Partition, res.Error))
	}
	// Only one record is ever sent.
	for _, recErr := range res.RecordErrors {
		if recErr != nil {
			return failed(KindBroker, fmt.Errorf("produce to %s[%d]: record rejected: %w", cfg.Topic, cfg.Partition, recErr))
		}
	}
	return Result{Metadata: &models.RecordMetadata{
		Topic:          cfg.Topic,
		Partition:      cfg.Partition,
		BaseOffset:     res.BaseOffset,
		LogAppendTime:  res.LogAppendTime,
		LogStartOffset: res.LogStartOffset,
		Throttle:       res.Throttle,
	}}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
