package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Aerzsu/render-dental-clinic-sub000/config"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/email"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/logger"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/messaging"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/messaging/redis"
)

// The notification worker consumes booking events published by the outbox
// processor and sends the corresponding patient emails.

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

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	mailer := email.NewService(email.Config{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		Username:      cfg.SMTP.Username,
		Password:      cfg.SMTP.Password,
		From:          cfg.SMTP.From,
		CancelURLBase: cfg.SMTP.CancelURLBase,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	channels := []string{
		model.EventBookingCreated,
		model.EventBookingConfirmed,
		model.EventBookingRejected,
		model.EventBookingCancelled,
	}
	for _, channel := range channels {
		msgs, err := broker.Subscribe(ctx, channel)
		if err != nil {
			log.Fatal().Err(err).Str("channel", channel).Msg("failed to subscribe")
		}
		go consume(ctx, channel, msgs, mailer, log)
	}

	// Expose worker metrics.
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":9090", nil); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Msg("notification worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down notification worker")
	cancel()
}

func consume(ctx context.Context, channel string, msgs <-chan []byte, mailer email.Service, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-msgs:
			if !ok {
				return
			}
			if err := handle(ctx, channel, raw, mailer); err != nil {
				log.Error().Err(err).Str("channel", channel).Msg("failed to handle event")
			}
		}
	}
}

func handle(ctx context.Context, channel string, raw []byte, mailer email.Service) error {
	var msg messaging.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	payload, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	var event model.BookingEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode booking event: %w", err)
	}

	switch channel {
	case model.EventBookingCreated:
		return mailer.SendBookingReceived(ctx, event)
	case model.EventBookingConfirmed:
		return mailer.SendBookingConfirmed(ctx, event)
	case model.EventBookingRejected:
		return mailer.SendBookingRejected(ctx, event)
	case model.EventBookingCancelled:
		return mailer.SendBookingCancelled(ctx, event)
	}
	return nil
}
