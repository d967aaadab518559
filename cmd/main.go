/**
 * @description
 * This is the main entry point for the booking-service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the payment gateway client, message broker, repositories, the
 * core application services, and the HTTP server. It wires everything together
 * and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/paygate: Client for the payment gateway API.
 * - pkg/rabbitmq: Client for RabbitMQ.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/IBookTours/IBookTours-sub001/internal/api"
	"github.com/IBookTours/IBookTours-sub001/internal/app"
	"github.com/IBookTours/IBookTours-sub001/internal/config"
	"github.com/IBookTours/IBookTours-sub001/internal/store"
	"github.com/IBookTours/IBookTours-sub001/pkg/paygate"
	rmrabbit "github.com/IBookTours/IBookTours-sub001/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.AdminJWTSecret) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"admin jwt secret must be configured\" env=ADMIN_JWT_SECRET")
	}

	log.Printf("level=info component=bootstrap msg=\"starting booking-service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 10
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer for email events. This service only
	// publishes, so a producer is enough; a missing broker degrades to a no-op
	// publisher rather than blocking bookings.
	var producer rmrabbit.Publisher
	rabbitProducer, err := rmrabbit.NewEventProducer(cfg.RabbitMQURL)
	if err != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
		producer = &rmrabbit.EventProducerFallback{}
	} else {
		defer rabbitProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = rabbitProducer
	}

	// Initialize the payment gateway client.
	gatewayClient := paygate.NewClient(
		cfg.PaymentGatewayBaseURL,
		cfg.PaymentGatewayAPIKey,
		time.Duration(cfg.PaymentGatewayTimeoutSeconds)*time.Second,
	)

	// Optional Redis for checkout rate limiting.
	var redisClient *redis.Client
	if cfg.CheckoutRateLimitPerMinute > 0 {
		if strings.TrimSpace(cfg.RedisURL) == "" {
			log.Println("level=warn component=bootstrap msg=\"redis url missing; checkout rate limiting disabled\" env=REDIS_URL")
		} else {
			redisOptions, parseErr := redis.ParseURL(cfg.RedisURL)
			if parseErr != nil {
				log.Printf("level=warn component=bootstrap msg=\"redis url parse failed; checkout rate limiting disabled\" err=%v", parseErr)
			} else {
				redisClient = redis.NewClient(redisOptions)
				pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancelPing()
				if pingErr := redisClient.Ping(pingCtx).Err(); pingErr != nil {
					log.Printf("level=warn component=bootstrap msg=\"redis ping failed; checkout rate limiting disabled\" err=%v", pingErr)
					redisClient.Close()
					redisClient = nil
				} else {
					defer redisClient.Close()
					log.Println("level=info component=bootstrap msg=\"redis connected\"")
				}
			}
		}
	}

	// Initialize the data access layer.
	bookingStore := store.NewPostgresBookingStore(dbpool)
	userStore := store.NewPostgresUserStore(dbpool)
	catalogStore := store.NewPostgresCatalogStore(dbpool)

	// Build the application services.
	policies, err := app.NewPolicyRegistry(app.DefaultPolicies())
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"policy table invalid\" err=%v", err)
	}

	notifier := app.NewEventEmailNotifier(producer)
	verifier := app.NewPriceVerifier(catalogStore)
	provisioner := app.NewGuestAccountProvisioner(userStore, time.Duration(cfg.ResetTokenTTLHours)*time.Hour)
	lifecycle := app.NewBookingLifecycle(bookingStore, policies)
	orchestrator := app.NewPaymentIntentOrchestrator(
		verifier,
		provisioner,
		lifecycle,
		policies,
		bookingStore,
		gatewayClient,
		notifier,
		cfg.DefaultCurrency,
	)
	approval := app.NewApprovalWorkflow(bookingStore, lifecycle, notifier)

	var limiter *app.RedisCheckoutRateLimiter
	if redisClient != nil {
		limiter = app.NewRedisCheckoutRateLimiter(redisClient, cfg.RedisRateLimitPrefix)
	}

	// Initialize the API handlers.
	handlers := api.NewBookingHandlers(
		orchestrator,
		approval,
		lifecycle,
		bookingStore,
		limiter,
		cfg.CheckoutRateLimitPerMinute,
		time.Minute,
	)

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Mount("/", api.BookingRoutes(handlers, cfg.AdminJWTSecret))

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	// Background reconciler for bookings stranded without a payment intent
	// after an ambiguous gateway outcome.
	reconcileCtx, stopReconcile := context.WithCancel(context.Background())
	defer stopReconcile()
	go runReconciler(reconcileCtx, orchestrator, time.Duration(cfg.ReconcileIntervalMinutes)*time.Minute)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	stopReconcile()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}

// runReconciler periodically retries intent creation for bookings stuck in
// pending without one.
func runReconciler(ctx context.Context, orchestrator *app.PaymentIntentOrchestrator, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			recovered, err := orchestrator.ReconcileStranded(sweepCtx, interval)
			cancel()
			if err != nil {
				log.Printf("level=warn component=reconciler msg=\"sweep failed\" err=%v", err)
				continue
			}
			if recovered > 0 {
				log.Printf("level=info component=reconciler msg=\"recovered stranded bookings\" count=%d", recovered)
			}
		}
	}
}
