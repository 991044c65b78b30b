package integration

import (
	"context"
	"testing"
	"time"

	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/application/reconciliation"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/catalog"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/domain/shared"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/cache"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/event"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/infrastructure/persistence"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/handler"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/middleware"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/internal/interfaces/http/router"
	"github.com/William-Gao/frootful-sales-aggregation-sub000/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestApp is the HTTP surface wired the same way cmd/server wires it
type TestApp struct {
	Engine   *gin.Engine
	Service  *reconciliation.Service
	Notifier *testutil.RecordingNotifier
	Bus      *event.InMemoryEventBus
}

// NewTestApp wires repositories, the event bus and the HTTP handlers on top
// of tdb. With a redis client the order locker, price cache and idempotency
// store are Redis-backed, otherwise the in-memory fallbacks are used.
func NewTestApp(t *testing.T, tdb *TestDB, redisClient *redis.Client, exportDestination string) *TestApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	proposalRepo := persistence.NewGormProposalRepository(tdb.DB)
	orderRepo := persistence.NewGormOrderRepository(tdb.DB)
	eventRepo := persistence.NewGormOrderEventRepository(tdb.DB)
	var prices catalog.Catalog = persistence.NewGormCatalogRepository(tdb.DB)
	txScope := persistence.NewGormTransactionScope(tdb.DB)

	var idempotency shared.IdempotencyStore
	opts := []reconciliation.ServiceOption{
		reconciliation.WithConfig(reconciliation.Config{
			ConflictRetries:   3,
			ExportDestination: exportDestination,
		}),
		reconciliation.WithLogger(log),
	}
	if redisClient != nil {
		prices = cache.NewPriceCache(prices, redisClient, time.Minute, log)
		idempotency = cache.NewRedisIdempotencyStore(redisClient, "recon:test:")
		opts = append(opts, reconciliation.WithOrderLocker(cache.NewOrderLocker(redisClient, 5*time.Second, log)))
	} else {
		store := cache.NewInMemoryIdempotencyStore(time.Minute)
		t.Cleanup(func() { _ = store.Close() })
		idempotency = store
	}

	notifier := &testutil.RecordingNotifier{}
	bus := event.NewInMemoryEventBus(log, event.WithAsyncDispatch())
	bus.Subscribe(event.NewIdempotentHandler("accepted_notification",
		reconciliation.NewAcceptedNotificationHandler(orderRepo, notifier, log),
		idempotency,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: time.Hour, Enabled: true}),
	))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = bus.Stop(ctx)
	})
	opts = append(opts, reconciliation.WithEventPublisher(bus))

	service := reconciliation.NewService(proposalRepo, orderRepo, eventRepo, prices, txScope, opts...)

	engine, err := router.NewEngine(router.EngineConfig{
		MaxBodySize: 1 << 20,
		Tracing:     middleware.TracingConfig{Enabled: false},
		Logger:      log,
	})
	require.NoError(t, err)

	router.NewRouter(engine, router.WithAPIMiddleware(middleware.Actor(middleware.DefaultActorConfig()))).
		RegisterRoot(handler.NewSystemHandler("test", map[string]handler.HealthCheck{
			"database": func(ctx context.Context) error { return tdb.SqlDB.PingContext(ctx) },
		})).
		Register(handler.NewProposalHandler(service)).
		Register(handler.NewOrderHandler(service)).
		Setup()

	return &TestApp{Engine: engine, Service: service, Notifier: notifier, Bus: bus}
}
