package container

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/vault-demo-go/internal/audit"
	auditstore "github.com/serroba/vault-demo-go/internal/audit/store"
	"github.com/serroba/vault-demo-go/internal/handlers"
	"github.com/serroba/vault-demo-go/internal/health"
	"github.com/serroba/vault-demo-go/internal/kv"
	"github.com/serroba/vault-demo-go/internal/messaging"
	"github.com/serroba/vault-demo-go/internal/middleware"
	"github.com/serroba/vault-demo-go/internal/ratelimit"
	"github.com/serroba/vault-demo-go/internal/store"
	"github.com/serroba/vault-demo-go/internal/vault"
	"go.uber.org/zap"
)

const itemIDLength = 12

type Options struct {
	Port            int    `default:"8888"           help:"Port to listen on"                                         short:"p"`
	RedisAddr       string `default:"localhost:6379" help:"Redis server address"                                      short:"r"`
	PostgresURL     string `help:"Postgres URL for the audit event sink; logs events instead when empty"`
	WindowSeconds   int    `default:"60"             help:"Rate limit window length in seconds"`
	DefaultLimit    int64  `default:"60"             help:"Default calls allowed per window"`
	ReconcileMillis int    `default:"1000"           help:"Expiry sweep interval in milliseconds"`
	WriteWaitMillis int    `default:"1000"           help:"How long writes wait for the writer role, in milliseconds"`
	LogFormat       string `default:"console"        enum:"console,json"                                              help:"Log output format"`
}

// LoggerPackage provides the application logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the Redis client shared by the event transport and
// the health check.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// PublisherPackage provides the event publisher and the typed publish
// functions derived from it.
func PublisherPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[audit.ItemWrittenEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[audit.ItemWrittenEvent](group.Publisher(), audit.TopicItemWritten), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[audit.ItemDeletedEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[audit.ItemDeletedEvent](group.Publisher(), audit.TopicItemDeleted), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[audit.ItemExpiredEvent], error) {
		group := do.MustInvoke[*messaging.PublisherGroup](i)

		return messaging.NewPublishFunc[audit.ItemExpiredEvent](group.Publisher(), audit.TopicItemExpired), nil
	})
}

// KVPackage provides the vault item store, its repository view, and the
// reconciler that sweeps expired items.
func KVPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*kv.Store[vault.Item], error) {
		options := do.MustInvoke[*Options](i)

		return kv.NewStore(
			kv.WithWriteWait[vault.Item](time.Duration(options.WriteWaitMillis) * time.Millisecond),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (vault.Repository, error) {
		return store.NewVaultStore(do.MustInvoke[*kv.Store[vault.Item]](i)), nil
	})

	do.Provide(injector, func(i *do.Injector) (*kv.Reconciler[vault.Item], error) {
		options := do.MustInvoke[*Options](i)
		itemStore := do.MustInvoke[*kv.Store[vault.Item]](i)
		logger := do.MustInvoke[*zap.Logger](i)
		publishExpired := do.MustInvoke[messaging.Publish[audit.ItemExpiredEvent]](i)

		onEvict := func(entry kv.Entry[vault.Item]) {
			event := &audit.ItemExpiredEvent{
				EventID:   uuid.NewString(),
				ItemID:    entry.Value.ID,
				ExpiredAt: entry.ExpiresAt,
				SweptAt:   time.Now(),
			}

			if err := publishExpired(event); err != nil {
				logger.Warn("failed to publish item expired event",
					zap.String("itemId", event.ItemID),
					zap.Error(err),
				)
			}
		}

		return kv.NewReconciler(
			itemStore,
			time.Duration(options.ReconcileMillis)*time.Millisecond,
			logger,
			kv.WithOnEvict(onEvict),
		), nil
	})
}

// RateLimitPackage provides the admission limiter over its own window store.
// Windows reset lazily at decision time, so their store never gets a
// reconciler.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*kv.Store[ratelimit.Window], error) {
		options := do.MustInvoke[*Options](i)

		return kv.NewStore(
			kv.WithWriteWait[ratelimit.Window](time.Duration(options.WriteWaitMillis) * time.Millisecond),
		), nil
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.FixedWindowLimiter, error) {
		options := do.MustInvoke[*Options](i)
		windows := do.MustInvoke[*kv.Store[ratelimit.Window]](i)

		policy := ratelimit.NewPolicy(
			time.Duration(options.WindowSeconds)*time.Second,
			options.DefaultLimit,
		)

		return ratelimit.NewFixedWindowLimiter(windows, policy), nil
	})
}

// HTTPPackage provides the router and the API with all middleware and
// routes registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		limiter := do.MustInvoke[*ratelimit.FixedWindowLimiter](i)
		repo := do.MustInvoke[vault.Repository](i)
		logger := do.MustInvoke[*zap.Logger](i)
		redisClient := do.MustInvoke[*redis.Client](i)
		publishWritten := do.MustInvoke[messaging.Publish[audit.ItemWrittenEvent]](i)
		publishDeleted := do.MustInvoke[messaging.Publish[audit.ItemDeletedEvent]](i)

		api := humachi.New(router, huma.DefaultConfig("Vault", "1.0.0"))
		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.Admission(api, limiter, logger),
		)

		newID, err := nanoid.Standard(itemIDLength)
		if err != nil {
			return nil, err
		}

		vaultHandler := handlers.NewVaultHandler(repo, newID, publishWritten, publishDeleted, logger)
		handlers.RegisterRoutes(api, vaultHandler)

		healthHandler := health.NewHandler(health.NewRedisChecker(redisClient), repo)
		health.RegisterRoutes(api, healthHandler)

		return api, nil
	})
}

// ConsumerGroupPackage provides the audit event sink and the consumers that
// persist published events.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (audit.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.PostgresURL == "" {
			logger.Info("no postgres url configured, audit events will only be logged")

			return auditstore.NewNoop(logger), nil
		}

		pool, err := pgxpool.New(context.Background(), options.PostgresURL)
		if err != nil {
			return nil, err
		}

		return auditstore.NewPostgres(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		sink := do.MustInvoke[audit.Store](i)
		client := do.MustInvoke[*redis.Client](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "audit",
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(subscriber, audit.TopicItemWritten, sink.SaveItemWritten, logger))
		group.Add(messaging.NewConsumer(subscriber, audit.TopicItemDeleted, sink.SaveItemDeleted, logger))
		group.Add(messaging.NewConsumer(subscriber, audit.TopicItemExpired, sink.SaveItemExpired, logger))

		return group, nil
	})
}
