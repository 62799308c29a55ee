package di

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/events"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/gateway"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/service"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/worker"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/config"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/database"
)

// Container holds all dependencies for the platform core
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *redis.Client
	Publisher events.Publisher
	Billing   gateway.BillingGateway

	// Repositories
	TenantRepo       repository.TenantRepository
	PlanRepo         repository.PlanRepository
	AccountRepo      repository.AccountRepository
	SubscriptionRepo repository.SubscriptionRepository
	BillingEventRepo repository.BillingEventRepository
	InvoiceRepo      repository.InvoiceRepository
	MembershipRepo   repository.MembershipRepository
	ChannelRepo      repository.ChannelAccountRepository

	// Services
	TenantService       service.TenantService
	PlanService         service.PlanService
	AccountService      service.AccountService
	SubscriptionService service.SubscriptionService
	EntitlementService  service.EntitlementService
	MembershipService   service.MembershipService
	ChannelService      service.ChannelAccountService
	InvoiceService      service.InvoiceService

	// Webhook entry point
	Dispatcher *gateway.WebhookDispatcher

	// Background reconciliation
	GraceSweeper *worker.GraceSweeper
}

// NewContainer wires the production stack: Postgres repositories, the Redis
// event-dedup cache, the Kafka lifecycle publisher, and the Stripe gateway.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		MaxRetries:      3,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init kafka publisher: %w", err)
	}

	c := &Container{
		DB:        db,
		Redis:     redisClient,
		Publisher: publisher,
		Billing:   gateway.NewStripeGateway(cfg.Billing.SecretKey),
	}

	pool := db.Pool()
	c.TenantRepo = repository.NewPostgresTenantRepository(pool)
	c.PlanRepo = repository.NewPostgresPlanRepository(pool)
	c.AccountRepo = repository.NewPostgresAccountRepository(pool)
	c.SubscriptionRepo = repository.NewPostgresSubscriptionRepository(pool)
	c.InvoiceRepo = repository.NewPostgresInvoiceRepository(pool)
	c.MembershipRepo = repository.NewPostgresMembershipRepository(pool)
	c.ChannelRepo = repository.NewPostgresChannelAccountRepository(pool)

	// Redis answers replays fast; the durable store stays authoritative.
	c.BillingEventRepo = repository.NewRedisEventCache(
		redisClient,
		repository.NewPostgresBillingEventRepository(pool),
		cfg.Redis.EventTTL,
	)

	c.initServices(domain.RetryPolicy{
		MaxRetries:        cfg.Lifecycle.MaxPaymentRetries,
		InitialBackoff:    cfg.Lifecycle.InitialBackoff,
		BackoffMultiplier: cfg.Lifecycle.BackoffMultiplier,
		GracePeriod:       cfg.Lifecycle.GracePeriod,
	})
	if cfg.Lifecycle.SweepInterval > 0 {
		c.GraceSweeper = worker.NewGraceSweeper(c.SubscriptionRepo, c.SubscriptionService, &worker.GraceSweeperConfig{
			ScanInterval: cfg.Lifecycle.SweepInterval,
			BatchSize:    cfg.Lifecycle.SweepBatchSize,
		})
	}
	return c, nil
}

// NewMemoryContainer wires the full service graph over in-memory
// repositories, with the relational cascades the database would otherwise
// provide. Used by tests and local development.
func NewMemoryContainer() *Container {
	tenantRepo := repository.NewMemoryTenantRepository()
	planRepo := repository.NewMemoryPlanRepository()
	accountRepo := repository.NewMemoryAccountRepository()
	subscriptionRepo := repository.NewMemorySubscriptionRepository()
	membershipRepo := repository.NewMemoryMembershipRepository()
	channelRepo := repository.NewMemoryChannelAccountRepository()
	invoiceRepo := repository.NewMemoryInvoiceRepository()

	// Tenant deletion cascades to all tenant-owned state, including the
	// invoices hanging off the tenant's subscriptions.
	tenantRepo.OnDelete(func(tenantID string) {
		for _, subID := range subscriptionRepo.DeleteByTenant(tenantID) {
			invoiceRepo.DeleteBySubscription(subID)
		}
		membershipRepo.DeleteByTenant(tenantID)
		channelRepo.DeleteByTenant(tenantID)
	})
	// Account deletion nulls out actor references instead of cascading.
	accountRepo.OnDelete(func(accountID string) {
		tenantRepo.NullifyActor(accountID)
		membershipRepo.NullifyActor(accountID)
		channelRepo.NullifyActor(accountID)
	})
	// Plans stay deletable only while nothing references them.
	planRepo.SetReferenceCheck(subscriptionRepo.ReferencesPlan)

	c := &Container{
		Publisher:        events.NoopPublisher{},
		TenantRepo:       tenantRepo,
		PlanRepo:         planRepo,
		AccountRepo:      accountRepo,
		SubscriptionRepo: subscriptionRepo,
		BillingEventRepo: repository.NewMemoryBillingEventRepository(),
		InvoiceRepo:      invoiceRepo,
		MembershipRepo:   membershipRepo,
		ChannelRepo:      channelRepo,
	}
	c.initServices(domain.DefaultRetryPolicy())
	return c
}

func (c *Container) initServices(policy domain.RetryPolicy) {
	c.TenantService = service.NewTenantService(c.TenantRepo)
	c.PlanService = service.NewPlanService(c.PlanRepo)
	c.AccountService = service.NewAccountService(c.AccountRepo)
	c.SubscriptionService = service.NewSubscriptionService(
		c.SubscriptionRepo,
		c.BillingEventRepo,
		c.TenantRepo,
		c.PlanRepo,
		c.InvoiceRepo,
		c.Publisher,
		policy,
	)
	c.EntitlementService = service.NewEntitlementService(c.SubscriptionRepo, c.PlanRepo, c.MembershipRepo, c.ChannelRepo)
	c.MembershipService = service.NewMembershipService(c.MembershipRepo, c.TenantRepo, c.AccountRepo, c.EntitlementService)
	c.ChannelService = service.NewChannelAccountService(c.ChannelRepo, c.EntitlementService)
	c.InvoiceService = service.NewInvoiceService(c.InvoiceRepo, c.SubscriptionRepo)
	c.Dispatcher = gateway.NewWebhookDispatcher(c.SubscriptionService)
	c.GraceSweeper = worker.NewGraceSweeper(c.SubscriptionRepo, c.SubscriptionService, nil)
}

// Close releases the container's infrastructure handles.
func (c *Container) Close() {
	if c.Publisher != nil {
		c.Publisher.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
