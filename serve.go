package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"orderd/internal/config"
	"orderd/internal/database"
	"orderd/internal/handlers"
	"orderd/internal/repositories"
	"orderd/internal/server"
	"orderd/internal/services"
	"orderd/pkg/rabbitmq"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}

	cmd.Flags().String("port", "", "listen address, e.g. :8080 (APP_PORT)")
	cmd.Flags().String("db-driver", "", "postgres, sqlite or memory (DATABASE_DRIVER)")
	cmd.Flags().String("db-dsn", "", "database connection string (DATABASE_DSN)")
	_ = v.BindPFlag("APP_PORT", cmd.Flags().Lookup("port"))
	_ = v.BindPFlag("DATABASE_DRIVER", cmd.Flags().Lookup("db-driver"))
	_ = v.BindPFlag("DATABASE_DSN", cmd.Flags().Lookup("db-dsn"))
	return cmd
}

type storage struct {
	orders   repositories.OrderRepository
	payments repositories.PaymentRepository
	tx       repositories.Transactor
	db       *gorm.DB
}

func openStorage(cfg *config.Config) (*storage, error) {
	if cfg.DatabaseDriver == "memory" {
		log.Println("Using in-memory repositories; data is lost on exit")
		return &storage{
			orders:   repositories.NewMockOrderRepository(),
			payments: repositories.NewMockPaymentRepository(),
			tx:       repositories.MemoryTransactor{},
		}, nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return &storage{
		orders:   repositories.NewGORMOrderRepository(db),
		payments: repositories.NewGORMPaymentRepository(db),
		tx:       repositories.NewGORMTransactor(db),
		db:       db,
	}, nil
}

func serve(cfg *config.Config) error {
	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	if store.db != nil {
		defer func() {
			if err := database.Close(store.db); err != nil {
				log.Printf("Error closing database: %v", err)
			}
		}()
	}

	health := map[string]handlers.HealthCheck{}
	if store.db != nil {
		health["database"] = func(ctx context.Context) error { return database.Ping(ctx, store.db) }
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQEnabled {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
			Queue:    cfg.RabbitMQQueue,
		})
		if err != nil {
			// Events are best-effort; the API still serves without a broker.
			log.Printf("Warning: RabbitMQ unavailable, events disabled: %v", err)
		} else {
			defer mqClient.Close() // Ensure the connection is closed on exit
			publisher = mqClient
			health["broker"] = func(context.Context) error { return mqClient.Ping() }

			err := mqClient.ConsumeEvents("orderd-audit", func(msg amqp.Delivery) error {
				return services.AuditEvent(msg.RoutingKey, msg.Body)
			})
			if err != nil {
				log.Printf("Failed to start audit consumer: %v", err)
			}
		}
	}

	app := server.New(server.Dependencies{
		Auth:      services.NewAuthService(cfg.JWTSecret, cfg.TokenTTL),
		Orders:    services.NewOrderService(store.orders, store.tx, publisher),
		Payments:  services.NewPaymentService(store.payments, store.orders, store.tx, publisher),
		Health:    health,
		AccessLog: true,
	})

	listenErr := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.AppPort)
		listenErr <- app.Listen(cfg.AppPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}
	log.Println("Server gracefully stopped")
	return nil
}
