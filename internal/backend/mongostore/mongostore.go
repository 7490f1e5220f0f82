// Package mongostore implements the record store and notification
// preferences on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tarevity/internal/service"
)

// ConnectTimeout bounds Connect and the initial ping.
const ConnectTimeout = 10 * time.Second

// Connect opens a client for uri and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, service.Wrap(service.KindTransport, "connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, service.Wrap(service.KindTransport, "ping", err)
	}
	return client, nil
}

// wrapError classifies driver errors.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return service.E(service.KindNotFound, op, "task not found")
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return service.Wrap(service.KindTransport, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
