package repository

import (
	"context"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// InvoiceRepository defines storage operations for the invoice ledger.
// Lookup methods return (nil, nil) when no invoice matches.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.Invoice, error)
	Update(ctx context.Context, invoice *domain.Invoice) error
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*domain.Invoice, error)
}
