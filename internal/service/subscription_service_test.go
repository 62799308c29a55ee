package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/events"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
	"github.com/SyedWaqas82/ConnectFlow-sub001/pkg/telemetry"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// capturePublisher records published lifecycle events.
type capturePublisher struct {
	mu     sync.Mutex
	events []*events.SubscriptionStateChanged
}

func (p *capturePublisher) PublishStateChanged(ctx context.Context, event *events.SubscriptionStateChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() {}

func (p *capturePublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.FromStatus+">"+e.ToStatus)
	}
	return out
}

type engineFixture struct {
	svc       SubscriptionService
	subs      *repository.MemorySubscriptionRepository
	invoices  *repository.MemoryInvoiceRepository
	clock     *fakeClock
	publisher *capturePublisher
	tenant    *domain.Tenant
	plan      *domain.Plan
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	ctx := context.Background()

	tenantRepo := repository.NewMemoryTenantRepository()
	planRepo := repository.NewMemoryPlanRepository()
	subRepo := repository.NewMemorySubscriptionRepository()
	eventRepo := repository.NewMemoryBillingEventRepository()
	invoiceRepo := repository.NewMemoryInvoiceRepository()
	publisher := &capturePublisher{}

	tenant, err := domain.NewTenant("Acme Corp", "cus_acme", nil)
	if err != nil {
		t.Fatalf("NewTenant failed: %v", err)
	}
	if err := tenantRepo.Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	plan, err := domain.NewPlan("Starter", "price_starter", 2900, "usd", domain.PlanTypeStandard, domain.BillingCycleMonthly)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	plan.MaxUsers = 5
	plan.MaxChannelAccounts = 3
	plan.MaxWhatsAppAccounts = 2
	plan.MaxFacebookAccounts = 1
	plan.MaxInstagramAccounts = 1
	plan.MaxTelegramAccounts = 1
	if err := planRepo.Create(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	svc := NewSubscriptionService(subRepo, eventRepo, tenantRepo, planRepo, invoiceRepo, publisher, domain.DefaultRetryPolicy())

	clock := newFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	svc.(*subscriptionService).now = clock.Now

	return &engineFixture{
		svc:       svc,
		subs:      subRepo,
		invoices:  invoiceRepo,
		clock:     clock,
		publisher: publisher,
		tenant:    tenant,
		plan:      plan,
	}
}

func (f *engineFixture) createSubscription(t *testing.T, providerRef string) *domain.Subscription {
	t.Helper()
	start := f.clock.Now()
	sub, err := f.svc.Create(context.Background(), CreateSubscriptionInput{
		TenantID:                f.tenant.ID,
		PlanID:                  f.plan.ID,
		ProviderSubscriptionRef: providerRef,
		PeriodStart:             start,
		PeriodEnd:               start.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return sub
}

func TestSubscriptionService_Create(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	sub := f.createSubscription(t, "sub_abc")
	if sub.Status != domain.SubscriptionActive {
		t.Errorf("Expected active, got %s", sub.Status)
	}

	entitled, err := f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if !entitled {
		t.Error("Expected tenant to be entitled after creation")
	}
}

func TestSubscriptionService_Create_UnknownTenantOrPlan(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	start := f.clock.Now()

	_, err := f.svc.Create(ctx, CreateSubscriptionInput{
		TenantID:                "missing",
		PlanID:                  f.plan.ID,
		ProviderSubscriptionRef: "sub_x",
		PeriodStart:             start,
		PeriodEnd:               start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown tenant, got %v", err)
	}

	_, err = f.svc.Create(ctx, CreateSubscriptionInput{
		TenantID:                f.tenant.ID,
		PlanID:                  "missing",
		ProviderSubscriptionRef: "sub_x",
		PeriodStart:             start,
		PeriodEnd:               start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown plan, got %v", err)
	}
}

func TestSubscriptionService_Create_SecondEntitledRejected(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	start := f.clock.Now()
	_, err := f.svc.Create(ctx, CreateSubscriptionInput{
		TenantID:                f.tenant.ID,
		PlanID:                  f.plan.ID,
		ProviderSubscriptionRef: "sub_second",
		PeriodStart:             start,
		PeriodEnd:               start.AddDate(0, 1, 0),
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected ErrConflict for second entitled subscription, got %v", err)
	}
}

func TestSubscriptionService_Create_AfterCancellationAllowed(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	if _, err := f.svc.RequestCancellation(ctx, sub.ID, true); err != nil {
		t.Fatalf("RequestCancellation failed: %v", err)
	}

	start := f.clock.Now()
	replacement, err := f.svc.Create(ctx, CreateSubscriptionInput{
		TenantID:                f.tenant.ID,
		PlanID:                  f.plan.ID,
		ProviderSubscriptionRef: "sub_new",
		PeriodStart:             start,
		PeriodEnd:               start.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("Create after cancellation failed: %v", err)
	}
	if replacement.Status != domain.SubscriptionActive {
		t.Errorf("Expected active replacement, got %s", replacement.Status)
	}
}

func TestSubscriptionService_PaymentFailureRetrySchedule(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	// First failure: past_due, retry in 24h.
	sub, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_1", nil)
	if err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}
	if sub.Status != domain.SubscriptionPastDue {
		t.Errorf("Expected past_due after first failure, got %s", sub.Status)
	}
	if sub.PaymentRetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", sub.PaymentRetryCount)
	}
	wantRetry := f.clock.Now().Add(24 * time.Hour)
	if sub.NextRetryAt == nil || !sub.NextRetryAt.Equal(wantRetry) {
		t.Errorf("Expected next retry at %v, got %v", wantRetry, sub.NextRetryAt)
	}

	// Second failure: still past_due, backoff doubles.
	f.clock.Advance(24 * time.Hour)
	sub, err = f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_2", nil)
	if err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}
	if sub.Status != domain.SubscriptionPastDue {
		t.Errorf("Expected past_due after second failure, got %s", sub.Status)
	}
	wantRetry = f.clock.Now().Add(48 * time.Hour)
	if sub.NextRetryAt == nil || !sub.NextRetryAt.Equal(wantRetry) {
		t.Errorf("Expected next retry at %v, got %v", wantRetry, sub.NextRetryAt)
	}

	// Third failure exhausts the retry budget: grace period begins.
	f.clock.Advance(48 * time.Hour)
	sub, err = f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_3", nil)
	if err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}
	if sub.Status != domain.SubscriptionInGracePeriod {
		t.Errorf("Expected in_grace_period after third failure, got %s", sub.Status)
	}
	if !sub.HasReachedMaxRetries {
		t.Error("Expected HasReachedMaxRetries to be set")
	}
	if sub.NextRetryAt != nil {
		t.Error("Expected no next retry once in grace period")
	}
	wantGraceEnd := f.clock.Now().Add(7 * 24 * time.Hour)
	if sub.GracePeriodEndsAt == nil || !sub.GracePeriodEndsAt.Equal(wantGraceEnd) {
		t.Errorf("Expected grace end %v, got %v", wantGraceEnd, sub.GracePeriodEndsAt)
	}

	// Access is retained during the grace period.
	entitled, err := f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if !entitled {
		t.Error("Expected entitlement during grace period")
	}
}

func TestSubscriptionService_DuplicateEventAppliedOnce(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	first, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_dup", nil)
	if err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}
	second, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_dup", nil)
	if err != nil {
		t.Fatalf("Duplicate RecordPaymentFailure failed: %v", err)
	}
	if second.PaymentRetryCount != first.PaymentRetryCount {
		t.Errorf("Duplicate event mutated retry count: %d vs %d", second.PaymentRetryCount, first.PaymentRetryCount)
	}
	if second.Version != first.Version {
		t.Errorf("Duplicate event produced a write: version %d vs %d", second.Version, first.Version)
	}
}

func TestSubscriptionService_PaymentSuccessClearsFailureState(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	for i, ref := range []string{"evt_1", "evt_2", "evt_3"} {
		if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", ref, nil); err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	sub, err := f.svc.RecordPaymentSuccess(ctx, "sub_abc", "evt_paid", nil)
	if err != nil {
		t.Fatalf("RecordPaymentSuccess failed: %v", err)
	}
	if sub.Status != domain.SubscriptionActive {
		t.Errorf("Expected active after payment, got %s", sub.Status)
	}
	if sub.PaymentRetryCount != 0 {
		t.Errorf("Expected retry count reset, got %d", sub.PaymentRetryCount)
	}
	if sub.IsInGracePeriod || sub.GracePeriodEndsAt != nil {
		t.Error("Expected grace bookkeeping cleared")
	}
	if sub.FirstPaymentFailureAt != nil || sub.LastPaymentFailedAt != nil || sub.NextRetryAt != nil {
		t.Error("Expected failure timestamps cleared")
	}
	if sub.HasReachedMaxRetries {
		t.Error("Expected HasReachedMaxRetries cleared")
	}
}

func TestSubscriptionService_ExpireGracePeriod(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	for _, ref := range []string{"evt_1", "evt_2", "evt_3"} {
		if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", ref, nil); err != nil {
			t.Fatalf("RecordPaymentFailure failed: %v", err)
		}
	}

	// Window still open: the sweep must not expire it.
	if _, err := f.svc.ExpireGracePeriod(ctx, sub.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition before grace end, got %v", err)
	}

	f.clock.Advance(7*24*time.Hour + time.Minute)
	expired, err := f.svc.ExpireGracePeriod(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ExpireGracePeriod failed: %v", err)
	}
	if expired.Status != domain.SubscriptionMaxRetriesExceeded {
		t.Errorf("Expected max_retries_exceeded, got %s", expired.Status)
	}

	entitled, err := f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if entitled {
		t.Error("Expected entitlement revoked after grace expiry")
	}

	// Manual reactivation restores access with a clean slate.
	restored, err := f.svc.Reactivate(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Reactivate failed: %v", err)
	}
	if restored.Status != domain.SubscriptionActive {
		t.Errorf("Expected active after reactivation, got %s", restored.Status)
	}
	if restored.PaymentRetryCount != 0 {
		t.Errorf("Expected retry count reset, got %d", restored.PaymentRetryCount)
	}
}

func TestSubscriptionService_RequestCancellation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	pending, err := f.svc.RequestCancellation(ctx, sub.ID, false)
	if err != nil {
		t.Fatalf("RequestCancellation failed: %v", err)
	}
	if pending.Status != domain.SubscriptionPendingCancellation {
		t.Errorf("Expected pending_cancellation, got %s", pending.Status)
	}
	if !pending.CancelAtPeriodEnd {
		t.Error("Expected CancelAtPeriodEnd set")
	}

	// Access continues until the period ends.
	entitled, err := f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if !entitled {
		t.Error("Expected entitlement until period end")
	}

	f.clock.Advance(32 * 24 * time.Hour)
	entitled, err = f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if entitled {
		t.Error("Expected entitlement revoked after period end")
	}
}

func TestSubscriptionService_RequestCancellation_Immediate(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	canceled, err := f.svc.RequestCancellation(ctx, sub.ID, true)
	if err != nil {
		t.Fatalf("RequestCancellation failed: %v", err)
	}
	if canceled.Status != domain.SubscriptionCanceled {
		t.Errorf("Expected canceled, got %s", canceled.Status)
	}
	if canceled.CanceledAt == nil {
		t.Error("Expected CanceledAt set")
	}

	entitled, err := f.svc.IsEntitled(ctx, f.tenant.ID)
	if err != nil {
		t.Fatalf("IsEntitled failed: %v", err)
	}
	if entitled {
		t.Error("Expected immediate cancellation to revoke access")
	}
}

func TestSubscriptionService_RenewalAdvancesPeriod(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	newStart := sub.CurrentPeriodEnd
	newEnd := newStart.AddDate(0, 1, 0)
	renewed, err := f.svc.RecordRenewal(ctx, "sub_abc", "evt_renew", newStart, newEnd)
	if err != nil {
		t.Fatalf("RecordRenewal failed: %v", err)
	}
	if !renewed.CurrentPeriodStart.Equal(newStart) || !renewed.CurrentPeriodEnd.Equal(newEnd) {
		t.Errorf("Expected period [%v, %v], got [%v, %v]", newStart, newEnd, renewed.CurrentPeriodStart, renewed.CurrentPeriodEnd)
	}
	if renewed.Status != domain.SubscriptionActive {
		t.Errorf("Expected active after renewal, got %s", renewed.Status)
	}
}

func TestSubscriptionService_RenewalFinalizesPendingCancellation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	if _, err := f.svc.RequestCancellation(ctx, sub.ID, false); err != nil {
		t.Fatalf("RequestCancellation failed: %v", err)
	}

	newStart := sub.CurrentPeriodEnd
	finalized, err := f.svc.RecordRenewal(ctx, "sub_abc", "evt_renew", newStart, newStart.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("RecordRenewal failed: %v", err)
	}
	if finalized.Status != domain.SubscriptionCanceled {
		t.Errorf("Expected cancellation finalized at period end, got %s", finalized.Status)
	}
	if finalized.CanceledAt == nil {
		t.Error("Expected CanceledAt set")
	}
}

func TestSubscriptionService_ProviderCancellation(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	canceled, err := f.svc.RecordProviderCancellation(ctx, "sub_abc", "evt_cancel")
	if err != nil {
		t.Fatalf("RecordProviderCancellation failed: %v", err)
	}
	if canceled.Status != domain.SubscriptionCanceled {
		t.Errorf("Expected canceled, got %s", canceled.Status)
	}
}

func TestSubscriptionService_TerminalAbsorbsLateEvents(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	if _, err := f.svc.RequestCancellation(ctx, sub.ID, true); err != nil {
		t.Fatalf("RequestCancellation failed: %v", err)
	}

	// Providers keep emitting invoice events after cancellation; the engine
	// must absorb them without error or mutation.
	late, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_late", nil)
	if err != nil {
		t.Fatalf("Late event returned error: %v", err)
	}
	if late.Status != domain.SubscriptionCanceled {
		t.Errorf("Expected canceled unchanged, got %s", late.Status)
	}
	if late.PaymentRetryCount != 0 {
		t.Errorf("Expected no retry count mutation, got %d", late.PaymentRetryCount)
	}
}

func TestSubscriptionService_InvoiceLedger(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	sub := f.createSubscription(t, "sub_abc")

	payload := &InvoicePayload{ProviderInvoiceRef: "in_001", Amount: 2900, Currency: "usd"}
	if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_fail", payload); err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}

	invoice, err := f.invoices.GetByProviderRef(ctx, "in_001")
	if err != nil {
		t.Fatalf("GetByProviderRef failed: %v", err)
	}
	if invoice == nil {
		t.Fatal("Expected invoice recorded")
	}
	if invoice.Status != domain.InvoiceStatusPaymentFailed {
		t.Errorf("Expected payment_failed, got %s", invoice.Status)
	}

	// The retry that succeeds settles the same provider invoice; the ledger
	// updates the row rather than appending a second one.
	if _, err := f.svc.RecordPaymentSuccess(ctx, "sub_abc", "evt_paid", payload); err != nil {
		t.Fatalf("RecordPaymentSuccess failed: %v", err)
	}
	invoice, err = f.invoices.GetByProviderRef(ctx, "in_001")
	if err != nil {
		t.Fatalf("GetByProviderRef failed: %v", err)
	}
	if invoice.Status != domain.InvoiceStatusPaid {
		t.Errorf("Expected paid, got %s", invoice.Status)
	}
	if invoice.PaidAt == nil {
		t.Error("Expected PaidAt set")
	}

	ledger, err := f.invoices.ListBySubscription(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ListBySubscription failed: %v", err)
	}
	if len(ledger) != 1 {
		t.Errorf("Expected a single ledger row, got %d", len(ledger))
	}
}

func TestSubscriptionService_PublishesTransitions(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_1", nil); err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}
	if _, err := f.svc.RecordPaymentSuccess(ctx, "sub_abc", "evt_2", nil); err != nil {
		t.Fatalf("RecordPaymentSuccess failed: %v", err)
	}

	want := []string{">active", "active>past_due", "past_due>active"}
	got := f.publisher.transitions()
	if len(got) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if f.publisher.events[0].TenantID != f.tenant.ID {
		t.Errorf("Expected tenant id on event, got %q", f.publisher.events[0].TenantID)
	}
}

// conflictingSubscriptionRepo fails the first n Update calls with a
// concurrency conflict to exercise the engine's retry loop.
type conflictingSubscriptionRepo struct {
	*repository.MemorySubscriptionRepository
	remaining int
}

func (r *conflictingSubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	if r.remaining > 0 {
		r.remaining--
		return domain.ErrConcurrencyConflict
	}
	return r.MemorySubscriptionRepository.Update(ctx, sub)
}

func TestSubscriptionService_RetriesConcurrencyConflict(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	conflicting := &conflictingSubscriptionRepo{MemorySubscriptionRepository: f.subs, remaining: 2}
	f.svc.(*subscriptionService).subscriptionRepo = conflicting

	sub, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_1", nil)
	if err != nil {
		t.Fatalf("Expected retry to absorb conflicts, got %v", err)
	}
	if sub.Status != domain.SubscriptionPastDue {
		t.Errorf("Expected past_due, got %s", sub.Status)
	}
	if sub.PaymentRetryCount != 1 {
		t.Errorf("Expected a single applied failure, got %d", sub.PaymentRetryCount)
	}

	// A conflict on every attempt surfaces the error.
	conflicting.remaining = concurrencyRetries + 1
	if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_2", nil); !errors.Is(err, domain.ErrConcurrencyConflict) {
		t.Errorf("Expected ErrConcurrencyConflict after exhausted retries, got %v", err)
	}

	// The failed event's ref was released, so redelivery applies it.
	sub, err = f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_2", nil)
	if err != nil {
		t.Fatalf("Expected redelivery after a failed write to apply, got %v", err)
	}
	if sub.PaymentRetryCount != 2 {
		t.Errorf("Expected redelivery to apply the failure, got retry count %d", sub.PaymentRetryCount)
	}
}

// faultySubscriptionRepo fails the first n Update calls with a storage error.
type faultySubscriptionRepo struct {
	*repository.MemorySubscriptionRepository
	remaining int
}

func (r *faultySubscriptionRepo) Update(ctx context.Context, sub *domain.Subscription) error {
	if r.remaining > 0 {
		r.remaining--
		return errors.New("storage unavailable")
	}
	return r.MemorySubscriptionRepository.Update(ctx, sub)
}

func TestSubscriptionService_FailedWriteReleasesEventRef(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_abc")

	faulty := &faultySubscriptionRepo{MemorySubscriptionRepository: f.subs, remaining: 1}
	f.svc.(*subscriptionService).subscriptionRepo = faulty

	if _, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_1", nil); err == nil {
		t.Fatal("Expected the failed write to surface an error")
	}

	// The provider redelivers the same event; it must not be treated as a
	// duplicate of the failed attempt.
	sub, err := f.svc.RecordPaymentFailure(ctx, "sub_abc", "evt_1", nil)
	if err != nil {
		t.Fatalf("Expected redelivery to apply, got %v", err)
	}
	if sub.Status != domain.SubscriptionPastDue {
		t.Errorf("Expected past_due after redelivery, got %s", sub.Status)
	}
	if sub.PaymentRetryCount != 1 {
		t.Errorf("Expected retry count 1 after redelivery, got %d", sub.PaymentRetryCount)
	}
}

func TestSubscriptionService_OperationsEmitSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = provider.Shutdown(context.Background())
	})
	if _, err := telemetry.Init(context.Background(), nil); err != nil {
		t.Fatalf("telemetry init: %v", err)
	}

	f := newEngineFixture(t)
	ctx := context.Background()
	f.createSubscription(t, "sub_traced")
	if _, err := f.svc.RecordPaymentFailure(ctx, "sub_traced", "evt_traced", nil); err != nil {
		t.Fatalf("RecordPaymentFailure failed: %v", err)
	}

	names := make(map[string]int)
	for _, span := range recorder.Ended() {
		names[span.Name()]++
	}
	for _, want := range []string{"subscription.create", "subscription.apply_event"} {
		if names[want] == 0 {
			t.Errorf("Expected a %q span, recorded %v", want, names)
		}
	}
}
