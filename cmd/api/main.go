package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arsalanbinkhan-beep/VenueGo/internal/api"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/api/handler"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/api/middleware"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/application"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/config"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ledger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/ticket"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/domain/transaction"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/memory"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/messaging"
	paymentinfra "github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/payment"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/postgres"
	redisinfra "github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/redis"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/infrastructure/signing"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/clock"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/logger"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/metrics"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/retry"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/pkg/tracing"
	"github.com/arsalanbinkhan-beep/VenueGo/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger(cfg.Env)
	logger.Set(log)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error("サーバーが異常終了しました", zap.Error(err))
		os.Exit(1)
	}
	log.Info("サーバーが正常にシャットダウンしました")
}

// stores は台帳まわりの永続化先
type stores struct {
	ledger        ledger.Store
	tickets       ticket.Store
	compensations payment.CompensationRepository
	tx            transaction.Manager
	checks        map[string]handler.Pinger
	close         func()
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.Init()

	tp, err := tracing.ConfigureTraceProvider(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("トレーサー初期化エラー: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	var rdb *redis.Client
	if cfg.Store.UsesPostgres() || cfg.Events.UsesRedis() {
		rdb = redisinfra.NewClient(&cfg.Redis)
		defer rdb.Close()
		if err := redisinfra.Ping(ctx, rdb); err != nil {
			return err
		}
		st.checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisinfra.Ping(ctx, rdb)
		})
	}

	wlogger := messaging.NewZapLoggerAdapter(logger.Get())
	transport, err := newTransport(cfg, rdb, wlogger)
	if err != nil {
		return err
	}
	bus, err := messaging.NewEventBus(transport.Publisher, wlogger)
	if err != nil {
		return fmt.Errorf("イベントバス作成エラー: %w", err)
	}
	publisher := messaging.NewEventPublisher(bus)

	signer, generated, err := signing.LoadSigner(cfg.Signing.KeyDir, cfg.Signing.RetiredKeysDir)
	if err != nil {
		return fmt.Errorf("署名鍵の読み込みエラー: %w", err)
	}
	logger.Info("署名鍵を読み込みました",
		zap.String("key_id", signer.KeyID()),
		zap.Int("keys", signer.KeyCount()),
		zap.Bool("generated", generated),
	)

	clk := clock.NewSystem()
	ids := clock.NewUUIDGenerator()
	policy := retry.Policy{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialInterval: cfg.Retry.InitialInterval,
		MaxInterval:     time.Second,
		MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
	}

	var (
		cache  application.SlotCache
		locker application.SlotLocker
	)
	// メモリバックエンドは単一プロセス前提のため、ロックとキャッシュを使わない
	if cfg.Store.UsesPostgres() {
		cache = redisinfra.NewSlotCache(rdb)
		locker = redisinfra.NewSlotLocker(
			redisinfra.NewLockManager(rdb),
			cfg.Reservation.LockTTL, cfg.Reservation.LockRetries, cfg.Reservation.LockRetryDelay, m,
		)
	}

	var processor payment.Processor
	if cfg.Payment.ProcessorURL != "" {
		processor = paymentinfra.NewHTTPProcessor(cfg.Payment)
	} else {
		logger.Warn("PAYMENT_PROCESSOR_URL が未設定のためサンドボックスを使用します")
		processor = paymentinfra.NewSandbox(ids)
	}

	slots := application.NewSlotService(st.ledger, cache, clk, ids)
	allocator := application.NewAllocator(st.ledger, locker, slots, clk, ids, cfg.Reservation.HoldTTL, policy, m)
	issuer := application.NewCredentialIssuer(st.ledger, st.tickets, signer, publisher, clk, m)
	payments := application.NewPaymentCoordinator(st.ledger, processor, st.compensations, issuer, slots, publisher, clk, ids, policy, m)
	checkin := application.NewCheckInValidator(st.ledger, st.tickets, signer, st.tx, slots, publisher, clk, m)
	expiry := application.NewExpiryService(st.ledger, slots, publisher, clk, cfg.Reservation.SweepBatchSize, m)

	router, err := messaging.NewRouter(transport, wlogger, messaging.RefundHandler(payments))
	if err != nil {
		return err
	}

	e := newEcho(cfg, &handler.Handlers{
		Health:        handler.NewHealthHandler(st.checks),
		Slot:          handler.NewSlotHandler(slots),
		Reservation:   handler.NewReservationHandler(allocator, payments, issuer),
		Payment:       handler.NewPaymentHandler(payments),
		CheckIn:       handler.NewCheckInHandler(checkin),
		Gatherer:      prometheus.DefaultGatherer,
		MetricsConfig: cfg.Metrics,
	}, m)

	sweeper := worker.NewHoldExpirySweeper(expiry, cfg.Reservation.SweepInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("サーバーを起動します", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバー起動エラー: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// ctx の終了でルーター自身が Close する
		return router.Run(gctx)
	})
	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		sweeper.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("サーバーをシャットダウンしています...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newEcho(cfg *config.Config, h *handler.Handlers, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, cfg.Tracing.ServiceName, m)
	h.Register(e)
	return e
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if !cfg.Store.UsesPostgres() {
		logger.Warn("メモリストアを使用します（再起動でデータは失われます）")
		return &stores{
			ledger:        memory.NewLedgerStore(),
			tickets:       memory.NewTicketStore(),
			compensations: memory.NewCompensationRepository(),
			tx:            transaction.NoTx,
			checks:        map[string]handler.Pinger{},
			close:         func() {},
		}, nil
	}

	db, err := postgres.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(db.DB, cfg.Store.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	tx := postgres.NewTxManager(db)
	return &stores{
		ledger:        postgres.NewLedgerStore(tx),
		tickets:       postgres.NewTicketStore(tx),
		compensations: postgres.NewCompensationRepository(tx),
		tx:            tx,
		checks: map[string]handler.Pinger{
			"postgres": handler.PingFunc(func(ctx context.Context) error {
				return postgres.Ping(ctx, db)
			}),
		},
		close: func() { db.Close() },
	}, nil
}

func newTransport(cfg *config.Config, rdb *redis.Client, wlogger watermill.LoggerAdapter) (*messaging.Transport, error) {
	if cfg.Events.UsesRedis() {
		return messaging.NewRedisTransport(rdb, wlogger)
	}
	return messaging.NewGoChannelTransport(wlogger), nil
}
