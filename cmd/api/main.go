package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/Aerzsu/render-dental-clinic-sub000/config"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/handler"
	appointmentHandler "github.com/Aerzsu/render-dental-clinic-sub000/internal/handler/appointment"
	availabilityHandler "github.com/Aerzsu/render-dental-clinic-sub000/internal/handler/availability"
	scheduleHandler "github.com/Aerzsu/render-dental-clinic-sub000/internal/handler/schedule"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/middleware"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/repository/postgres"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/router"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/service/approval"
	availabilityService "github.com/Aerzsu/render-dental-clinic-sub000/internal/service/availability"
	bookingService "github.com/Aerzsu/render-dental-clinic-sub000/internal/service/booking"
	scheduleService "github.com/Aerzsu/render-dental-clinic-sub000/internal/service/schedule"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/auth"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/clock"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/logger"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/messaging/redis"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/metrics"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/security"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/validator"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	loc, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Clinic.Timezone).Msg("invalid clinic timezone")
	}
	clk := clock.New(loc)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validators")
	}

	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txManager := postgres.NewTxManager(db)

	m := metrics.NewMetrics("dental", "booking")

	availabilitySvc := availabilityService.NewService(scheduleRepo, appointmentRepo, clk, m)
	scheduleSvc := scheduleService.NewService(scheduleRepo, txManager, clk, log)
	policy := approval.NewPolicy(approval.Config{
		Enabled:               cfg.Clinic.AutoApproval.Enabled,
		RequireCompletedVisit: cfg.Clinic.AutoApproval.RequireCompletedVisit,
	}, appointmentRepo)
	tokens := security.NewTokenManager(0)
	bookingSvc := bookingService.NewService(
		appointmentRepo,
		patientRepo,
		outboxRepo,
		txManager,
		availabilitySvc,
		policy,
		tokens,
		clk,
		bookingService.Config{
			NoticeHours:             cfg.Clinic.BookingNoticeHours,
			CancellationWindowHours: cfg.Clinic.CancellationWindowHours,
		},
		m,
		log,
	)

	jwtSvc := auth.NewJWTService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.ExpiryHours)*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	h := handler.NewHandler(db)
	scheduleH := scheduleHandler.NewHandler(scheduleSvc, cfg.Clinic.BulkRangeLimitDays)
	availabilityH := availabilityHandler.NewHandler(availabilitySvc)
	appointmentH := appointmentHandler.NewHandler(bookingSvc)

	r := router.NewRouter(
		authMiddleware,
		scheduleH,
		availabilityH,
		appointmentH,
		h,
		log,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(),
			MetricsPrefix:    "dental_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), log, m)
	go outboxProcessor.Start(ctx)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
