package domain

import (
	"errors"
	"time"
)

// Invoice statuses as reported by the billing provider.
const (
	InvoiceStatusOpen          = "open"
	InvoiceStatusPaid          = "paid"
	InvoiceStatusPaymentFailed = "payment_failed"
	InvoiceStatusVoid          = "void"
)

// Invoice is an append-mostly billing record tied to a subscription.
type Invoice struct {
	ID string `json:"id"`
	AuditInfo

	SubscriptionID string `json:"subscription_id"`

	// ProviderInvoiceRef is the billing provider's invoice id. Globally
	// unique; it doubles as the idempotency key for repeated notifications.
	ProviderInvoiceRef string `json:"provider_invoice_ref"`

	Status   string     `json:"status"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
	PaidAt   *time.Time `json:"paid_at,omitempty"`
}

// NewInvoice creates an invoice in the open status.
func NewInvoice(subscriptionID, providerInvoiceRef string, amount int64, currency string) (*Invoice, error) {
	if subscriptionID == "" {
		return nil, errors.New("subscription id is required")
	}
	if providerInvoiceRef == "" {
		return nil, errors.New("provider invoice ref is required")
	}
	if len(currency) != 3 {
		return nil, errors.New("currency must be a 3-letter code")
	}
	inv := &Invoice{
		AuditInfo:          NewAuditInfo(nil),
		SubscriptionID:     subscriptionID,
		ProviderInvoiceRef: providerInvoiceRef,
		Status:             InvoiceStatusOpen,
		Amount:             amount,
		Currency:           currency,
	}
	inv.ID = inv.PublicID
	return inv, nil
}

// MarkPaid records the payment timestamp. Idempotent.
func (i *Invoice) MarkPaid(now time.Time) {
	if i.Status == InvoiceStatusPaid {
		return
	}
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
}

// MarkFailed records a failed payment attempt on the invoice.
func (i *Invoice) MarkFailed() {
	if i.Status == InvoiceStatusPaid {
		return
	}
	i.Status = InvoiceStatusPaymentFailed
}
