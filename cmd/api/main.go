package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecnc-ops/incident-tracker/backend/internal/cache"
	"github.com/ecnc-ops/incident-tracker/backend/internal/config"
	"github.com/ecnc-ops/incident-tracker/backend/internal/domain"
	"github.com/ecnc-ops/incident-tracker/backend/internal/handler"
	"github.com/ecnc-ops/incident-tracker/backend/internal/notify"
	"github.com/ecnc-ops/incident-tracker/backend/internal/repository"
	"github.com/ecnc-ops/incident-tracker/backend/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * configuration
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("unable to load configuration", "error", err)
		return
	}

	/**********************************************
	 * database
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("unable to create database pool", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect, so ping explicitly
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("unable to connect to database", "error", err)
		return
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(context.Background(), dbpool); err != nil {
			logger.Error("unable to apply migrations", "error", err)
			return
		}
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	redisCtx, redisCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer redisCancel()
	if err := rdb.Ping(redisCtx).Err(); err != nil {
		logger.Error("unable to connect to redis", "error", err)
		return
	}

	otps := cache.NewOTPStore(rdb, time.Duration(cfg.Redis.OperationExpiration)*time.Second)

	/**********************************************
	 * notification transport
	 **********************************************/
	var sender notify.Sender
	switch cfg.Notify.Transport {
	case "smtp":
		mailer, err := notify.NewMailer(cfg)
		if err != nil {
			logger.Error("unable to create mail client", "error", err)
			return
		}
		defer mailer.Close()
		sender = mailer
	case "amqp":
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("unable to connect to rabbitmq", "error", err)
			return
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Error("unable to open channel", "error", err)
			return
		}
		defer ch.Close()

		if _, err := notify.DeclareQueue(ch, cfg.RabbitMQ.Queue); err != nil {
			logger.Error("unable to declare queue", "error", err)
			return
		}
		sender = notify.NewAMQPSender(ch, cfg.RabbitMQ.Queue, time.Duration(cfg.RabbitMQ.PublishTimeout)*time.Second, logger)
	default:
		logger.Error("unknown notification transport", "transport", cfg.Notify.Transport)
		return
	}

	dispatcher := notify.NewDispatcher(sender, notify.Options{
		Workers:        cfg.Notify.Workers,
		QueueSize:      cfg.Notify.QueueSize,
		EnqueueTimeout: time.Duration(cfg.Notify.EnqueueTimeout) * time.Second,
	}, logger)

	/**********************************************
	 * service and initial admin
	 **********************************************/
	svc := service.New(repo, dispatcher, otps, service.Options{
		BaseURL:       cfg.BaseURL,
		OTPExpiration: time.Duration(cfg.OTP.Expiration) * time.Second,
		Logger:        logger,
	})

	created, err := svc.EnsureUser(context.Background(), &domain.User{
		Username: cfg.InitialAdmin.Username,
		Email:    cfg.InitialAdmin.Email,
		Role:     domain.RoleAdmin,
	}, cfg.InitialAdmin.Password)
	if err != nil {
		logger.Error("unable to create initial admin", "error", err)
		return
	}
	if created {
		logger.Info("initial admin created", "username", cfg.InitialAdmin.Username)
	}

	/**********************************************
	 * handler
	 **********************************************/
	h, err := handler.NewHandler(cfg, svc)
	if err != nil {
		logger.Error("unable to create handler", "error", err)
		return
	}
	h.RegisterRoutes()

	/**********************************************
	 * HTTP server
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      h.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", slog.String("error", err.Error()))
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}

	// drain queued notifications before the transport closes
	dispatcher.Close()
	logger.Info("server stopped")
}
