package bootstrap

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"genius-be/internal/config"
	"genius-be/internal/controller"
	"genius-be/internal/handler"
	"genius-be/internal/pkg/logger"
	"genius-be/internal/pkg/mailer"
	"genius-be/internal/pkg/metrics"
	"genius-be/internal/pkg/payment"
	"genius-be/internal/pkg/serverutils"
	"genius-be/internal/repository/memory"
	"genius-be/internal/repository/unitofwork"
	"genius-be/internal/service"
	"genius-be/internal/websocket"
	"genius-be/pkg/chat/session"
	"genius-be/pkg/entitlement"
	"genius-be/pkg/eventbus"
	"genius-be/pkg/events"
	"genius-be/pkg/llm/factory"

	pktNats "genius-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const subscriptionCacheTTL = 30 * time.Second

type Container struct {
	// Controllers
	ConversationController controller.IConversationController
	BillingController      controller.IBillingController
	RealtimeHandler        *handler.RealtimeHandler

	AuthMiddleware fiber.Handler

	// Background work, started by main.go
	RelayService service.IRelayService
	WebSocketHub *websocket.Hub

	Logger   logger.ILogger
	Registry *prometheus.Registry

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	c := &Container{Logger: sysLogger, Registry: registry}

	// 2. Event Bus
	bus := eventbus.New(watermill.NopLogger{})
	c.closers = append(c.closers, func() { _ = bus.Close() })
	publishers := events.MultiPublisher{bus}

	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publishers = append(publishers, natsPub)
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	// 3. Redis, shared by the rate limiter and the websocket fan-out
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// 4. Services
	completer, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		APIKey:   cfg.Keys.OpenAI,
		BaseURL:  llmBaseURL(cfg),
		Timeout:  cfg.Ai.Timeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	if !completer.Configured() {
		log.Printf("[WARN] LLM provider has no credential; conversation requests will fail")
	}

	gate := entitlement.NewGate(uowFactory, cfg.Billing.FreeApiLimit,
		entitlement.WithSubscriptionCache(memory.NewSubscriptionCache(subscriptionCacheTTL)),
	)
	store := session.NewStore(uowFactory)

	conversationService := service.NewConversationService(store, gate, completer, publishers, collector, sysLogger)

	var emailService mailer.IEmailService
	if cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.Email,
			cfg.SMTP.SenderName,
			cfg.Billing.FrontendURL,
		)
	}

	gateway := payment.NewMidtransGateway(cfg.Keys.MidtransServerKey, cfg.Keys.MidtransIsProduction)
	billingService := service.NewBillingService(
		uowFactory,
		gateway,
		service.BillingPlan{
			PriceId:    cfg.Billing.PlanPriceId,
			Name:       cfg.Billing.PlanName,
			Amount:     cfg.Billing.PlanAmount,
			PeriodDays: cfg.Billing.PlanPeriodDays,
			FinishURL:  cfg.Billing.FrontendURL + "/conversation?payment=success",
		},
		gate,
		emailService,
		publishers,
		collector,
		sysLogger,
	)

	// 5. Realtime
	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "realtime.log"))
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)
	c.RelayService = service.NewRelayService(bus, c.WebSocketHub, sysLogger)

	// 6. Controllers
	auth := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)
	limiter := serverutils.NewRateLimiter(rdb, "genius:ratelimit:conversation", cfg.App.RateLimitPerMinute, sysLogger)
	c.closers = append(c.closers, limiter.Stop)

	c.AuthMiddleware = auth
	c.ConversationController = controller.NewConversationController(conversationService, auth, limiter.Middleware())
	c.BillingController = controller.NewBillingController(billingService, auth)
	c.RealtimeHandler = handler.NewRealtimeHandler(c.WebSocketHub, wsLogger)

	return c
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.OpenAIBaseURL
}
