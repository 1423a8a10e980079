package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"middleoffice/internal/document/events"
	docservice "middleoffice/internal/document/service"
	docmemory "middleoffice/internal/document/store/memory"
	docmongo "middleoffice/internal/document/store/mongodb"
	"middleoffice/internal/platform/config"
	"middleoffice/internal/platform/health"
	"middleoffice/internal/platform/kafka"
	platformmongo "middleoffice/internal/platform/mongo"
	platformredis "middleoffice/internal/platform/redis"
	userservice "middleoffice/internal/user/service"
	usermemory "middleoffice/internal/user/store/memory"
	usermongo "middleoffice/internal/user/store/mongodb"
	"middleoffice/pkg/platform/lease"
)

// backends holds the stores and optional infrastructure selected by config.
type backends struct {
	documents docservice.Store
	users     userservice.Store
	locker    lease.Locker
	publisher docservice.Publisher
	health    *health.Checker
	closers   []closer
}

type closer struct {
	name  string
	close func(context.Context) error
}

// openBackends connects to every configured dependency. Anything left
// unconfigured falls back to its in-process implementation.
func openBackends(ctx context.Context, cfg config.Server, logger *slog.Logger) (b *backends, err error) {
	b = &backends{health: health.New(2 * time.Second)}
	defer func() {
		if err != nil {
			_ = b.Close(context.WithoutCancel(ctx))
		}
	}()

	if err := b.openStores(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err := b.openLease(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err := b.openEvents(ctx, cfg, logger); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *backends) openStores(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	if cfg.Mongo.URI == "" {
		logger.WarnContext(ctx, "MONGO_URI not set, using in-memory stores")
		documents := docmemory.NewInMemory()
		b.documents = documents
		b.users = usermemory.New()
		b.health.Register("store", documents.Ping)
		return nil
	}

	client, err := platformmongo.Connect(ctx, cfg.Mongo, time.Minute, logger)
	if err != nil {
		return err
	}
	b.closers = append(b.closers, closer{"mongo", client.Disconnect})

	db := client.Database(cfg.Mongo.Database)
	documents := docmongo.New(client, db, docmongo.Collections{
		Active:  cfg.Mongo.PolicyCollection,
		History: cfg.Mongo.HistoryCollection,
		Deleted: cfg.Mongo.DeletedCollection,
	})
	if err := documents.EnsureIndexes(ctx); err != nil {
		return err
	}
	b.documents = documents
	b.users = usermongo.New(db, cfg.Mongo.UserCollection)
	b.health.Register("mongo", documents.Ping)
	return nil
}

func (b *backends) openLease(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		b.locker = lease.NewSharded(0)
		return nil
	}
	b.closers = append(b.closers, closer{"redis", func(context.Context) error { return client.Close() }})
	b.locker = lease.NewRedis(client.Client,
		lease.WithTTL(cfg.Redis.LeaseTTL),
		lease.WithLogger(logger),
	)
	b.health.Register("redis", client.Health)
	logger.InfoContext(ctx, "using redis leases")
	return nil
}

func (b *backends) openEvents(ctx context.Context, cfg config.Server, logger *slog.Logger) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil
	}
	kcfg := kafka.Config{
		Brokers:    cfg.Kafka.Brokers,
		Topic:      cfg.Kafka.Topic,
		Partitions: cfg.Kafka.Partitions,
	}
	client, err := kafka.NewClient(kcfg)
	if err != nil {
		return err
	}
	publisher := events.NewKafkaPublisher(client, cfg.Kafka.Topic)
	b.closers = append(b.closers, closer{"kafka", func(context.Context) error {
		publisher.Close()
		return nil
	}})
	if err := kafka.EnsureTopic(ctx, client, kcfg); err != nil {
		return err
	}
	b.publisher = publisher
	b.health.Register("kafka", func(ctx context.Context) error { return kafka.Ping(ctx, client) })
	logger.InfoContext(ctx, "publishing lifecycle events", "topic", cfg.Kafka.Topic)
	return nil
}

// Close releases every dependency in reverse order of opening.
func (b *backends) Close(ctx context.Context) error {
	var result *multierror.Error
	for i := len(b.closers) - 1; i >= 0; i-- {
		c := b.closers[i]
		if err := c.close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return result.ErrorOrNil()
}
