package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// CreateChannelAccountInput carries the fields for provisioning a channel
// account.
type CreateChannelAccountInput struct {
	TenantID           string
	Type               domain.ChannelType
	ProviderAccountRef string
	DisplayName        string
	ContactInfo        string
	CreatedBy          *string
}

// ChannelAccountService defines the interface for channel account
// provisioning and lifecycle operations
type ChannelAccountService interface {
	// Create provisions a channel account in the pending state, enforcing
	// the plan's per-type and aggregate caps atomically with the insert.
	Create(ctx context.Context, input CreateChannelAccountInput) (*domain.ChannelAccount, error)
	// GetByID retrieves a channel account by id
	GetByID(ctx context.Context, id string) (*domain.ChannelAccount, error)
	// ListByTenant lists the tenant's channel accounts, deleted included
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.ChannelAccount, error)
	// Activate moves a pending integration to active
	Activate(ctx context.Context, id string) (*domain.ChannelAccount, error)
	// Suspend pauses an active integration
	Suspend(ctx context.Context, id string) (*domain.ChannelAccount, error)
	// Resume re-activates a suspended integration
	Resume(ctx context.Context, id string) (*domain.ChannelAccount, error)
	// SoftDelete logically deletes the integration, freeing its quota slot
	SoftDelete(ctx context.Context, id string, actor *string) error
}

type channelAccountService struct {
	channelRepo  repository.ChannelAccountRepository
	entitlements EntitlementService
}

// NewChannelAccountService creates a new ChannelAccountService
func NewChannelAccountService(channelRepo repository.ChannelAccountRepository, entitlements EntitlementService) ChannelAccountService {
	return &channelAccountService{
		channelRepo:  channelRepo,
		entitlements: entitlements,
	}
}

func (s *channelAccountService) Create(ctx context.Context, input CreateChannelAccountInput) (*domain.ChannelAccount, error) {
	account, err := domain.NewChannelAccount(input.TenantID, input.Type, input.ProviderAccountRef, input.CreatedBy)
	if err != nil {
		return nil, err
	}
	account.DisplayName = input.DisplayName
	account.ContactInfo = input.ContactInfo

	_, plan, err := s.entitlements.EntitledPlan(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	typeMax, err := plan.MaxFor(input.Type.ResourceKind())
	if err != nil {
		return nil, err
	}
	totalMax, err := plan.MaxFor(domain.ResourceChannelAccounts)
	if err != nil {
		return nil, err
	}

	// Caps are re-checked inside the repository transaction, so two
	// concurrent creates cannot both land under the limit.
	if err := s.channelRepo.CreateWithQuota(ctx, account, typeMax, totalMax); err != nil {
		return nil, err
	}

	logger.Get().InfoContext(ctx, "channel account provisioned",
		zap.String("tenant_id", input.TenantID),
		zap.String("channel_type", string(input.Type)),
		zap.String("channel_account_id", account.ID),
	)
	return account, nil
}

func (s *channelAccountService) GetByID(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	account, err := s.channelRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

func (s *channelAccountService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.ChannelAccount, error) {
	return s.channelRepo.ListByTenant(ctx, tenantID)
}

func (s *channelAccountService) Activate(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	return s.apply(ctx, id, func(account *domain.ChannelAccount, now time.Time) error {
		return account.Activate()
	})
}

func (s *channelAccountService) Suspend(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	return s.apply(ctx, id, func(account *domain.ChannelAccount, now time.Time) error {
		return account.Suspend(now)
	})
}

func (s *channelAccountService) Resume(ctx context.Context, id string) (*domain.ChannelAccount, error) {
	return s.apply(ctx, id, func(account *domain.ChannelAccount, now time.Time) error {
		return account.Resume(now)
	})
}

func (s *channelAccountService) SoftDelete(ctx context.Context, id string, actor *string) error {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if account.Lifecycle.IsDeleted() {
		return nil
	}
	account.SoftDelete(time.Now().UTC(), actor)
	account.Touch(actor)
	if err := s.channelRepo.Update(ctx, account); err != nil {
		return err
	}
	logger.Get().InfoContext(ctx, "channel account deleted",
		zap.String("tenant_id", account.TenantID),
		zap.String("channel_account_id", id),
	)
	return nil
}

func (s *channelAccountService) apply(ctx context.Context, id string, mutate func(*domain.ChannelAccount, time.Time) error) (*domain.ChannelAccount, error) {
	account, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(account, time.Now().UTC()); err != nil {
		return nil, err
	}
	account.Touch(nil)
	if err := s.channelRepo.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
