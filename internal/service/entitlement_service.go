package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/telemetry"
)

// Denial reasons carried on Decision.
const (
	DenialNoActiveSubscription = "no_active_subscription"
	DenialQuotaExceeded        = "quota_exceeded"
)

// Decision is the outcome of an entitlement check. When Allowed is false,
// Reason says why.
type Decision struct {
	Allowed bool
	Reason  string
	// Max and Used are populated for quota decisions.
	Max  int
	Used int
}

// EntitlementService answers whether a tenant may provision another resource
// of a given kind under its current subscription and plan.
type EntitlementService interface {
	// CanProvision checks the tenant's entitled subscription and its plan's
	// cap for the resource kind. For channel kinds the aggregate channel cap
	// is checked as well.
	CanProvision(ctx context.Context, tenantID string, kind domain.ResourceKind) (Decision, error)
	// EntitledSubscription returns the tenant's currently entitled
	// subscription, or ErrNoActiveSubscription.
	EntitledSubscription(ctx context.Context, tenantID string) (*domain.Subscription, error)
	// EntitledPlan returns the entitled subscription together with its plan.
	EntitledPlan(ctx context.Context, tenantID string) (*domain.Subscription, *domain.Plan, error)
}

type entitlementService struct {
	subscriptionRepo repository.SubscriptionRepository
	planRepo         repository.PlanRepository
	membershipRepo   repository.MembershipRepository
	channelRepo      repository.ChannelAccountRepository
	denials          *telemetry.Counter
	now              func() time.Time
}

// NewEntitlementService creates a new EntitlementService
func NewEntitlementService(
	subscriptionRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	membershipRepo repository.MembershipRepository,
	channelRepo repository.ChannelAccountRepository,
) EntitlementService {
	denials, _ := telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "entitlement.denials",
		Description: "Entitlement checks that denied provisioning",
		Unit:        "{denial}",
	})
	return &entitlementService{
		subscriptionRepo: subscriptionRepo,
		planRepo:         planRepo,
		membershipRepo:   membershipRepo,
		channelRepo:      channelRepo,
		denials:          denials,
		now:              time.Now,
	}
}

func (s *entitlementService) EntitledSubscription(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	subs, err := s.subscriptionRepo.ListByTenantID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	for _, sub := range subs {
		if sub.IsEntitled(now) {
			return sub, nil
		}
	}
	return nil, domain.ErrNoActiveSubscription
}

func (s *entitlementService) EntitledPlan(ctx context.Context, tenantID string) (*domain.Subscription, *domain.Plan, error) {
	sub, err := s.EntitledSubscription(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.planRepo.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	if plan == nil {
		return nil, nil, domain.ErrNotFound
	}
	return sub, plan, nil
}

func (s *entitlementService) CanProvision(ctx context.Context, tenantID string, kind domain.ResourceKind) (Decision, error) {
	_, plan, err := s.EntitledPlan(ctx, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveSubscription) {
			return s.deny(ctx, tenantID, kind, Decision{Reason: DenialNoActiveSubscription}), nil
		}
		return Decision{}, err
	}

	max, err := plan.MaxFor(kind)
	if err != nil {
		return Decision{}, err
	}
	used, err := s.usage(ctx, tenantID, kind)
	if err != nil {
		return Decision{}, err
	}
	if used >= max {
		return s.deny(ctx, tenantID, kind, Decision{Reason: DenialQuotaExceeded, Max: max, Used: used}), nil
	}

	// A channel type within its own cap can still be blocked by the
	// aggregate channel cap.
	if kind != domain.ResourceUsers && kind != domain.ResourceChannelAccounts {
		totalMax, err := plan.MaxFor(domain.ResourceChannelAccounts)
		if err != nil {
			return Decision{}, err
		}
		totalUsed, err := s.channelRepo.CountActive(ctx, tenantID)
		if err != nil {
			return Decision{}, err
		}
		if totalUsed >= totalMax {
			return s.deny(ctx, tenantID, kind, Decision{Reason: DenialQuotaExceeded, Max: totalMax, Used: totalUsed}), nil
		}
	}

	return Decision{Allowed: true, Max: max, Used: used}, nil
}

func (s *entitlementService) usage(ctx context.Context, tenantID string, kind domain.ResourceKind) (int, error) {
	switch kind {
	case domain.ResourceUsers:
		return s.membershipRepo.CountActiveMembers(ctx, tenantID)
	case domain.ResourceChannelAccounts:
		return s.channelRepo.CountActive(ctx, tenantID)
	case domain.ResourceWhatsAppAccounts:
		return s.channelRepo.CountActiveByType(ctx, tenantID, domain.ChannelTypeWhatsApp)
	case domain.ResourceFacebookAccounts:
		return s.channelRepo.CountActiveByType(ctx, tenantID, domain.ChannelTypeFacebook)
	case domain.ResourceInstagramAccounts:
		return s.channelRepo.CountActiveByType(ctx, tenantID, domain.ChannelTypeInstagram)
	case domain.ResourceTelegramAccounts:
		return s.channelRepo.CountActiveByType(ctx, tenantID, domain.ChannelTypeTelegram)
	}
	return 0, domain.ErrNotFound
}

func (s *entitlementService) deny(ctx context.Context, tenantID string, kind domain.ResourceKind, d Decision) Decision {
	d.Allowed = false
	if s.denials != nil {
		s.denials.Inc(ctx,
			telemetry.TenantIDAttr(tenantID),
			telemetry.ResourceKindAttr(string(kind)),
			telemetry.DenialReasonAttr(d.Reason),
		)
	}
	logger.Get().InfoContext(ctx, "entitlement denied",
		zap.String("tenant_id", tenantID),
		zap.String("resource_kind", string(kind)),
		zap.String("reason", d.Reason),
	)
	return d
}
