package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/logger"
)

// CreateTenantInput carries the fields for registering a tenant.
type CreateTenantInput struct {
	Name               string
	Domain             string
	ContactEmail       string
	ContactPhone       string
	Address            string
	BillingCustomerRef string
	CreatedBy          *string
}

// TenantService defines the interface for tenant registry operations
type TenantService interface {
	// Create registers a new tenant. The billing customer ref must be
	// globally unique.
	Create(ctx context.Context, input CreateTenantInput) (*domain.Tenant, error)
	// GetByID retrieves a tenant by id
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	// GetByBillingCustomerRef retrieves a tenant by its billing customer ref
	GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Tenant, error)
	// UpdateSettings replaces the tenant's settings map
	UpdateSettings(ctx context.Context, id string, settings map[string]interface{}, actor *string) (*domain.Tenant, error)
	// Deactivate marks the tenant inactive without removing its data
	Deactivate(ctx context.Context, id string, actor *string) error
	// Delete removes the tenant and all tenant-owned state
	Delete(ctx context.Context, id string) error
}

type tenantService struct {
	tenantRepo repository.TenantRepository
}

// NewTenantService creates a new TenantService
func NewTenantService(tenantRepo repository.TenantRepository) TenantService {
	return &tenantService{tenantRepo: tenantRepo}
}

func (s *tenantService) Create(ctx context.Context, input CreateTenantInput) (*domain.Tenant, error) {
	tenant, err := domain.NewTenant(input.Name, input.BillingCustomerRef, input.CreatedBy)
	if err != nil {
		return nil, err
	}
	tenant.Domain = input.Domain
	tenant.ContactEmail = input.ContactEmail
	tenant.ContactPhone = input.ContactPhone
	tenant.Address = input.Address

	existing, err := s.tenantRepo.GetByBillingCustomerRef(ctx, input.BillingCustomerRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrConflict
	}

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		return nil, err
	}

	logger.Get().InfoContext(ctx, "tenant registered",
		zap.String("tenant_id", tenant.ID),
		zap.String("billing_customer_ref", tenant.BillingCustomerRef),
	)
	return tenant, nil
}

func (s *tenantService) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	return tenant, nil
}

func (s *tenantService) GetByBillingCustomerRef(ctx context.Context, ref string) (*domain.Tenant, error) {
	tenant, err := s.tenantRepo.GetByBillingCustomerRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}
	return tenant, nil
}

func (s *tenantService) UpdateSettings(ctx context.Context, id string, settings map[string]interface{}, actor *string) (*domain.Tenant, error) {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = make(map[string]interface{})
	}
	tenant.Settings = settings
	tenant.Touch(actor)
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) Deactivate(ctx context.Context, id string, actor *string) error {
	tenant, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	tenant.Deactivate(time.Now().UTC())
	tenant.Touch(actor)
	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return err
	}
	logger.Get().InfoContext(ctx, "tenant deactivated", zap.String("tenant_id", id))
	return nil
}

func (s *tenantService) Delete(ctx context.Context, id string) error {
	tenant, err := s.tenantRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tenant == nil {
		return domain.ErrNotFound
	}
	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Get().InfoContext(ctx, "tenant deleted", zap.String("tenant_id", id))
	return nil
}
