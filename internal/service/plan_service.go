package service

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
)

// CreatePlanInput carries the fields for defining a plan.
type CreatePlanInput struct {
	Name             string
	ProviderPriceRef string
	PriceAmount      int64
	Currency         string
	Type             domain.PlanType
	BillingCycle     domain.BillingCycle

	MaxUsers             int
	MaxChannelAccounts   int
	MaxWhatsAppAccounts  int
	MaxFacebookAccounts  int
	MaxInstagramAccounts int
	MaxTelegramAccounts  int
}

// PlanQuotaUpdate carries the administratively adjustable plan fields. Nil
// pointers leave the current value untouched.
type PlanQuotaUpdate struct {
	Name                 *string
	IsActive             *bool
	MaxUsers             *int
	MaxChannelAccounts   *int
	MaxWhatsAppAccounts  *int
	MaxFacebookAccounts  *int
	MaxInstagramAccounts *int
	MaxTelegramAccounts  *int
}

// PlanService defines the interface for plan catalog operations
type PlanService interface {
	// Create defines a new plan. The provider price ref must be globally unique.
	Create(ctx context.Context, input CreatePlanInput) (*domain.Plan, error)
	// GetByID retrieves a plan by id
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	// ListActive lists plans open to new subscriptions
	ListActive(ctx context.Context) ([]*domain.Plan, error)
	// AdministrativeUpdate adjusts plan fields in place; existing
	// subscriptions keep referencing the same plan row
	AdministrativeUpdate(ctx context.Context, id string, update PlanQuotaUpdate, actor *string) (*domain.Plan, error)
	// Delete removes a plan; fails with Conflict while any subscription
	// references it
	Delete(ctx context.Context, id string) error
}

type planService struct {
	planRepo repository.PlanRepository
}

// NewPlanService creates a new PlanService
func NewPlanService(planRepo repository.PlanRepository) PlanService {
	return &planService{planRepo: planRepo}
}

func (s *planService) Create(ctx context.Context, input CreatePlanInput) (*domain.Plan, error) {
	plan, err := domain.NewPlan(input.Name, input.ProviderPriceRef, input.PriceAmount, input.Currency, input.Type, input.BillingCycle)
	if err != nil {
		return nil, err
	}
	plan.MaxUsers = input.MaxUsers
	plan.MaxChannelAccounts = input.MaxChannelAccounts
	plan.MaxWhatsAppAccounts = input.MaxWhatsAppAccounts
	plan.MaxFacebookAccounts = input.MaxFacebookAccounts
	plan.MaxInstagramAccounts = input.MaxInstagramAccounts
	plan.MaxTelegramAccounts = input.MaxTelegramAccounts

	existing, err := s.planRepo.GetByProviderPriceRef(ctx, input.ProviderPriceRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planService) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrNotFound
	}
	return plan, nil
}

func (s *planService) ListActive(ctx context.Context) ([]*domain.Plan, error) {
	return s.planRepo.ListActive(ctx)
}

func (s *planService) AdministrativeUpdate(ctx context.Context, id string, update PlanQuotaUpdate, actor *string) (*domain.Plan, error) {
	plan, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		plan.Name = *update.Name
	}
	if update.IsActive != nil {
		plan.IsActive = *update.IsActive
	}
	if update.MaxUsers != nil {
		plan.MaxUsers = *update.MaxUsers
	}
	if update.MaxChannelAccounts != nil {
		plan.MaxChannelAccounts = *update.MaxChannelAccounts
	}
	if update.MaxWhatsAppAccounts != nil {
		plan.MaxWhatsAppAccounts = *update.MaxWhatsAppAccounts
	}
	if update.MaxFacebookAccounts != nil {
		plan.MaxFacebookAccounts = *update.MaxFacebookAccounts
	}
	if update.MaxInstagramAccounts != nil {
		plan.MaxInstagramAccounts = *update.MaxInstagramAccounts
	}
	if update.MaxTelegramAccounts != nil {
		plan.MaxTelegramAccounts = *update.MaxTelegramAccounts
	}
	plan.Touch(actor)

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *planService) Delete(ctx context.Context, id string) error {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if plan == nil {
		return domain.ErrNotFound
	}
	return s.planRepo.Delete(ctx, id)
}
