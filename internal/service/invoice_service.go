package service

import (
	"context"
	"time"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
)

// InvoiceService defines the interface for the invoice ledger
type InvoiceService interface {
	// RecordInvoice appends an invoice. A provider invoice ref seen before
	// is an idempotent no-op returning the stored invoice.
	RecordInvoice(ctx context.Context, subscriptionID, providerInvoiceRef string, amount int64, currency string) (*domain.Invoice, error)
	// GetByProviderRef retrieves an invoice by the provider's invoice id
	GetByProviderRef(ctx context.Context, providerRef string) (*domain.Invoice, error)
	// MarkPaid records payment on the invoice. Idempotent.
	MarkPaid(ctx context.Context, providerRef string) (*domain.Invoice, error)
	// MarkFailed records a failed payment attempt on the invoice
	MarkFailed(ctx context.Context, providerRef string) (*domain.Invoice, error)
	// ListBySubscription lists a subscription's invoices
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*domain.Invoice, error)
}

type invoiceService struct {
	invoiceRepo      repository.InvoiceRepository
	subscriptionRepo repository.SubscriptionRepository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo repository.InvoiceRepository, subscriptionRepo repository.SubscriptionRepository) InvoiceService {
	return &invoiceService{
		invoiceRepo:      invoiceRepo,
		subscriptionRepo: subscriptionRepo,
	}
}

func (s *invoiceService) RecordInvoice(ctx context.Context, subscriptionID, providerInvoiceRef string, amount int64, currency string) (*domain.Invoice, error) {
	existing, err := s.invoiceRepo.GetByProviderRef(ctx, providerInvoiceRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	sub, err := s.subscriptionRepo.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrNotFound
	}

	invoice, err := domain.NewInvoice(subscriptionID, providerInvoiceRef, amount, currency)
	if err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) GetByProviderRef(ctx context.Context, providerRef string) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, providerRef string) (*domain.Invoice, error) {
	invoice, err := s.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	invoice.MarkPaid(time.Now().UTC())
	invoice.Touch(nil)
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) MarkFailed(ctx context.Context, providerRef string) (*domain.Invoice, error) {
	invoice, err := s.GetByProviderRef(ctx, providerRef)
	if err != nil {
		return nil, err
	}
	invoice.MarkFailed()
	invoice.Touch(nil)
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) ListBySubscription(ctx context.Context, subscriptionID string) ([]*domain.Invoice, error) {
	return s.invoiceRepo.ListBySubscription(ctx, subscriptionID)
}
