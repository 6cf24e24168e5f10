package mq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const heartbeat = 10 * time.Second

// Connection wraps a RabbitMQ connection owned by one device
type Connection struct {
	conn   *amqp.Connection
	logger *zap.Logger
}

// Dial opens a RabbitMQ connection named after the device so it can be told apart
// in the broker's management view
func Dial(logger *zap.Logger, url, deviceID string) (*Connection, error) {
	log := logger.With(zap.String("device_id", deviceID))
	log.Info("attempting to connect to RabbitMQ...")

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(deviceID)

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat:  heartbeat,
		Properties: props,
	})
	if err != nil {
		log.Error("rabbitmq connection failed", zap.Error(err))
		return nil, fmt.Errorf("[RABBITMQ CONNECTION FAILED] cannot connect to RabbitMQ, check RABBITMQ_URL and credentials. Error: %w", err)
	}

	log.Info("rabbitmq connection established")
	return &Connection{conn: conn, logger: log}, nil
}

// Channel opens a channel on the connection
func (c *Connection) Channel() (*amqp.Channel, error) {
	if c.conn.IsClosed() {
		return nil, amqp.ErrClosed
	}
	return c.conn.Channel()
}

// Close closes the connection; closing an already closed connection is not an error
func (c *Connection) Close() error {
	if c.conn.IsClosed() {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Error("failed to close rabbitmq connection", zap.Error(err))
		return err
	}
	c.logger.Info("rabbitmq connection closed")
	return nil
}
