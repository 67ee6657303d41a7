package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-booking/internal/config"
	"github.com/iliyamo/event-booking/internal/counter"
	"github.com/iliyamo/event-booking/internal/database"
	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/lock"
	"github.com/iliyamo/event-booking/internal/notification"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/repository"
	"github.com/iliyamo/event-booking/internal/router"
	"github.com/iliyamo/event-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	log := logrus.WithField("component", "server")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("mysql connection failed")
	}
	defer db.Close()

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.WithError(err).Fatal("redis connection failed")
	}
	defer rdb.Close()

	publisher, err := queue.NewPublisher(cfg.RabbitURL, queue.NotificationQueue)
	if err != nil {
		log.WithError(err).Fatal("rabbitmq connection failed")
	}
	defer publisher.Close()

	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	locks := lock.NewManager(lock.NewRedisStore(rdb))
	seats := counter.New(counter.NewRedisStore(rdb))

	bookingSvc := service.NewBookingService(events, bookings, locks, seats, publisher)

	dispatcher := notification.NewDispatcher(
		notification.NewEmailStrategy(),
		notification.NewPushStrategy(),
		notification.NewSMSStrategy(),
	)
	consumer := queue.NewConsumer(cfg.RabbitURL, queue.NotificationQueue, cfg.ConsumerPrefetch)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx, dispatcher.Dispatch); err != nil && ctx.Err() == nil {
			log.WithError(err).Error("notification consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	router.Register(e, cfg, rdb,
		handler.NewAuthHandler(cfg, users, tokens),
		handler.NewEventHandler(events, bookingSvc),
		handler.NewBookingHandler(bookingSvc),
	)

	go func() {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown incomplete")
	}
	<-consumerDone
	log.Info("shutdown complete")
}
