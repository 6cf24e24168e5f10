package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/septivank/meter-reading-sync/internal/db"
	"github.com/septivank/meter-reading-sync/internal/syncer"
	"github.com/septivank/meter-reading-sync/tools/timeparser"
	"go.uber.org/zap"
)

// ErrNacked is returned when the broker refuses a published reading. The engine
// treats it as a rejection of that reading.
var ErrNacked = fmt.Errorf("%w: broker nacked reading", syncer.ErrDeliveryRejected)

var _ syncer.Deliverer = (*Publisher)(nil)

const (
	userAgent        = "meter-reading-sync/1.0"
	meterDateLayout  = "02/01/2006 15:04:05"
	readingPointName = "meter_reading"
)

// IngestMessage is the envelope the metering ingestion pipeline consumes
type IngestMessage struct {
	RequestID         string        `json:"request_id"`
	ClientFingerprint string        `json:"client_fingerprint"`
	UserAgent         string        `json:"user_agent"`
	ReceivedAt        time.Time     `json:"received_at"`
	Payload           Payload       `json:"payload"`
	Field             *FieldReading `json:"field_reading,omitempty"`
}

// Payload represents the meter reading payload
type Payload struct {
	PM []PMData `json:"PM"`
}

// PMData represents a single meter data point
type PMData struct {
	Date string `json:"date"`
	Data string `json:"data"`
	Name string `json:"name"`
}

// FieldReading carries the identifiers recorded by the operator
type FieldReading struct {
	MeterID   string `json:"meter_id"`
	AddressID string `json:"address_id"`
	RouteID   string `json:"route_id"`
	ImageURI  string `json:"image_uri,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Publisher publishes field readings to RabbitMQ with publisher confirms
type Publisher struct {
	conn       *Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	deviceID   string
	timeout    time.Duration
	logger     *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher
func NewPublisher(conn *Connection, exchange, routingKey, deviceID string, timeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// Declare exchange
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		deviceID:   deviceID,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

// NewIngestMessage builds the envelope for a field reading. The reading id is used as
// request id so the ingestion side can drop duplicates.
func NewIngestMessage(reading db.MeterReading, deviceID string, now time.Time) IngestMessage {
	date := reading.Timestamp
	if t, err := timeparser.ParseReadingTimestamp(reading.Timestamp); err == nil {
		date = t.UTC().Format(meterDateLayout)
	}

	return IngestMessage{
		RequestID:         reading.ID,
		ClientFingerprint: deviceID,
		UserAgent:         userAgent,
		ReceivedAt:        now,
		Payload: Payload{
			PM: []PMData{
				{
					Date: date,
					Data: reading.Value,
					Name: readingPointName,
				},
			},
		},
		Field: &FieldReading{
			MeterID:   reading.MeterID,
			AddressID: reading.AddressID,
			RouteID:   reading.RouteID,
			ImageURI:  reading.ImageURI,
			Timestamp: reading.Timestamp,
		},
	}
}

// Deliver publishes the reading and waits for the broker confirm
func (p *Publisher) Deliver(ctx context.Context, reading db.MeterReading) error {
	body, err := json.Marshal(NewIngestMessage(reading, p.deviceID, time.Now()))
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    reading.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm reading: %w", err)
	}
	if !acked {
		return ErrNacked
	}

	p.logger.Debug("published reading",
		zap.String("routing_key", p.routingKey),
		zap.String("reading_id", reading.ID),
		zap.String("meter_id", reading.MeterID),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
