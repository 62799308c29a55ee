package repository

import (
	"context"
	"sync"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// MemoryInvoiceRepository is an in-memory InvoiceRepository for testing.
type MemoryInvoiceRepository struct {
	mu            sync.RWMutex
	invoices      map[string]*domain.Invoice
	byProviderRef map[string]string
}

// NewMemoryInvoiceRepository creates an empty in-memory invoice repository.
func NewMemoryInvoiceRepository() *MemoryInvoiceRepository {
	return &MemoryInvoiceRepository{
		invoices:      make(map[string]*domain.Invoice),
		byProviderRef: make(map[string]string),
	}
}

func (r *MemoryInvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[invoice.ID]; exists {
		return domain.ErrConflict
	}
	if _, exists := r.byProviderRef[invoice.ProviderInvoiceRef]; exists {
		return domain.ErrConflict
	}
	copied := *invoice
	r.invoices[invoice.ID] = &copied
	r.byProviderRef[invoice.ProviderInvoiceRef] = invoice.ID
	return nil
}

func (r *MemoryInvoiceRepository) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byProviderRef[providerRef]
	if !exists {
		return nil, nil
	}
	copied := *r.invoices[id]
	return &copied, nil
}

func (r *MemoryInvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.invoices[invoice.ID]; !exists {
		return domain.ErrNotFound
	}
	copied := *invoice
	r.invoices[invoice.ID] = &copied
	return nil
}

// DeleteBySubscription removes all invoices of a subscription; used by the
// memory container's tenant-delete cascade.
func (r *MemoryInvoiceRepository) DeleteBySubscription(subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, invoice := range r.invoices {
		if invoice.SubscriptionID == subscriptionID {
			delete(r.byProviderRef, invoice.ProviderInvoiceRef)
			delete(r.invoices, id)
		}
	}
}

func (r *MemoryInvoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoices := make([]*domain.Invoice, 0)
	for _, invoice := range r.invoices {
		if invoice.SubscriptionID == subscriptionID {
			copied := *invoice
			invoices = append(invoices, &copied)
		}
	}
	return invoices, nil
}
