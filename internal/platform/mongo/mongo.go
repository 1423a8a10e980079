// Package mongo opens the MongoDB client shared by the document and user
// stores.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"middleoffice/internal/platform/config"
)

// Connect dials cfg.URI and waits until the primary answers a ping,
// retrying with exponential backoff for at most maxWait.
func Connect(ctx context.Context, cfg config.MongoConfig, maxWait time.Duration, logger *slog.Logger) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	if maxWait > 0 {
		policy.MaxElapsedTime = maxWait
	}
	attempt := 0
	ping := func() error {
		attempt++
		err := client.Ping(ctx, readpref.Primary())
		if err != nil {
			logger.WarnContext(ctx, "mongo ping failed", "attempt", attempt, "error", err)
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logger.InfoContext(ctx, "mongo connected", "database", cfg.Database, "attempts", attempt)
	return client, nil
}
