package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/repository"
)

type membershipFixture struct {
	svc      MembershipService
	accounts *repository.MemoryAccountRepository
	clock    *fakeClock
	tenant   *domain.Tenant
	account  *domain.Account
	plan     *domain.Plan
}

// newMembershipFixture seeds a tenant with an active subscription on a
// two-seat plan and one directory account.
func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()
	ctx := context.Background()

	tenantRepo := repository.NewMemoryTenantRepository()
	planRepo := repository.NewMemoryPlanRepository()
	subRepo := repository.NewMemorySubscriptionRepository()
	membershipRepo := repository.NewMemoryMembershipRepository()
	channelRepo := repository.NewMemoryChannelAccountRepository()
	accountRepo := repository.NewMemoryAccountRepository()

	tenant, err := domain.NewTenant("Acme Corp", "cus_acme", nil)
	if err != nil {
		t.Fatalf("NewTenant failed: %v", err)
	}
	if err := tenantRepo.Create(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	plan, err := domain.NewPlan("Duo", "price_duo", 1900, "usd", domain.PlanTypeStandard, domain.BillingCycleMonthly)
	if err != nil {
		t.Fatalf("NewPlan failed: %v", err)
	}
	plan.MaxUsers = 2
	plan.MaxChannelAccounts = 1
	plan.MaxWhatsAppAccounts = 1
	if err := planRepo.Create(ctx, plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	clock := newFakeClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	start := clock.Now()
	sub, err := domain.NewSubscription(tenant.ID, plan.ID, "sub_members", start, start.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("NewSubscription failed: %v", err)
	}
	if err := subRepo.Create(ctx, sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	account, err := domain.NewAccount("jane@example.com", "Jane", "Doe")
	if err != nil {
		t.Fatalf("NewAccount failed: %v", err)
	}
	if err := accountRepo.Create(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	entitlements := NewEntitlementService(subRepo, planRepo, membershipRepo, channelRepo)
	entitlements.(*entitlementService).now = clock.Now

	return &membershipFixture{
		svc:      NewMembershipService(membershipRepo, tenantRepo, accountRepo, entitlements),
		accounts: accountRepo,
		clock:    clock,
		tenant:   tenant,
		account:  account,
		plan:     plan,
	}
}

func (f *membershipFixture) addAccount(t *testing.T, email string) *domain.Account {
	t.Helper()
	account, err := domain.NewAccount(email, "Test", "User")
	if err != nil {
		t.Fatalf("NewAccount failed: %v", err)
	}
	if err := f.accounts.Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestMembershipService_AddMember(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	member, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil)
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if member.MembershipStatus != domain.MembershipActive {
		t.Errorf("Expected active membership, got %s", member.MembershipStatus)
	}

	// Adding the same account again conflicts.
	if _, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate membership, got %v", err)
	}
}

func TestMembershipService_AddMember_UnknownReferences(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, "missing", f.account.ID, nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown tenant, got %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.tenant.ID, "missing", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown account, got %v", err)
	}
}

func TestMembershipService_RemoveAndReviveMember(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if _, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "admin", nil); err != nil {
		t.Fatalf("GrantRole failed: %v", err)
	}

	if err := f.svc.RemoveMember(ctx, f.tenant.ID, f.account.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	// Idempotent.
	if err := f.svc.RemoveMember(ctx, f.tenant.ID, f.account.ID); err != nil {
		t.Fatalf("Second RemoveMember failed: %v", err)
	}

	left, err := f.svc.GetMember(ctx, f.tenant.ID, f.account.ID)
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	if left.MembershipStatus != domain.MembershipLeft {
		t.Errorf("Expected left, got %s", left.MembershipStatus)
	}
	if left.LeftAt == nil {
		t.Error("Expected LeftAt set")
	}

	// Re-adding revives the historical row with no roles carried over.
	revived, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil)
	if err != nil {
		t.Fatalf("Re-add failed: %v", err)
	}
	if revived.ID != left.ID {
		t.Errorf("Expected the same membership row revived, got %s vs %s", revived.ID, left.ID)
	}
	if revived.MembershipStatus != domain.MembershipActive {
		t.Errorf("Expected active after revival, got %s", revived.MembershipStatus)
	}
	if revived.LeftAt != nil {
		t.Error("Expected LeftAt cleared on revival")
	}

	hasRole, err := f.svc.HasRole(ctx, f.tenant.ID, f.account.ID, "admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if hasRole {
		t.Error("Expected roles revoked across leave and re-add")
	}
}

func TestMembershipService_UserQuota(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	// Fill the second and only remaining seat, then overflow.
	second := f.addAccount(t, "john@example.com")
	if _, err := f.svc.AddMember(ctx, f.tenant.ID, second.ID, nil); err != nil {
		t.Fatalf("AddMember for second seat failed: %v", err)
	}

	third := f.addAccount(t, "jim@example.com")
	if _, err := f.svc.AddMember(ctx, f.tenant.ID, third.ID, nil); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("Expected ErrQuotaExceeded at the seat cap, got %v", err)
	}

	// A member leaving frees the seat.
	if err := f.svc.RemoveMember(ctx, f.tenant.ID, second.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if _, err := f.svc.AddMember(ctx, f.tenant.ID, third.ID, nil); err != nil {
		t.Fatalf("AddMember after freed seat failed: %v", err)
	}
}

func TestMembershipService_ConcurrentAddsHonorSeatCap(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	accounts := make([]*domain.Account, 4)
	for i := range accounts {
		accounts[i] = f.addAccount(t, fmt.Sprintf("agent%d@example.com", i))
	}

	// The count and insert are atomic in the repository, so racing adds
	// cannot overshoot the two-seat plan.
	var wg sync.WaitGroup
	errs := make([]error, len(accounts))
	for i, account := range accounts {
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			_, errs[i] = f.svc.AddMember(ctx, f.tenant.ID, accountID, nil)
		}(i, account.ID)
	}
	wg.Wait()

	added, denied := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			added++
		case errors.Is(err, domain.ErrQuotaExceeded):
			denied++
		default:
			t.Fatalf("unexpected AddMember error: %v", err)
		}
	}
	if added != 2 || denied != 2 {
		t.Errorf("Expected exactly 2 seats filled and 2 denials, got %d filled, %d denied", added, denied)
	}
}

func TestMembershipService_AddMember_NoSubscription(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	tenantRepo := repository.NewMemoryTenantRepository()
	planRepo := repository.NewMemoryPlanRepository()
	subRepo := repository.NewMemorySubscriptionRepository()
	membershipRepo := repository.NewMemoryMembershipRepository()
	channelRepo := repository.NewMemoryChannelAccountRepository()

	bare, err := domain.NewTenant("No Sub Inc", "cus_nosub", nil)
	if err != nil {
		t.Fatalf("NewTenant failed: %v", err)
	}
	if err := tenantRepo.Create(ctx, bare); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	account := f.addAccount(t, "solo@example.com")

	entitlements := NewEntitlementService(subRepo, planRepo, membershipRepo, channelRepo)
	svc := NewMembershipService(membershipRepo, tenantRepo, f.accounts, entitlements)

	if _, err := svc.AddMember(ctx, bare.ID, account.ID, nil); !errors.Is(err, domain.ErrNoActiveSubscription) {
		t.Errorf("Expected ErrNoActiveSubscription, got %v", err)
	}
}

func TestMembershipService_RoleGrantCycle(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	role, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "agent", nil)
	if err != nil {
		t.Fatalf("GrantRole failed: %v", err)
	}
	if role.RoleName != "agent" {
		t.Errorf("Expected role agent, got %s", role.RoleName)
	}

	// Granting an already-held role conflicts.
	if _, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "agent", nil); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("Expected ErrConflict on duplicate grant, got %v", err)
	}

	hasRole, err := f.svc.HasRole(ctx, f.tenant.ID, f.account.ID, "agent", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if !hasRole {
		t.Error("Expected agent role effective after grant")
	}

	if err := f.svc.RevokeRole(ctx, f.tenant.ID, f.account.ID, "agent"); err != nil {
		t.Fatalf("RevokeRole failed: %v", err)
	}
	// Idempotent.
	if err := f.svc.RevokeRole(ctx, f.tenant.ID, f.account.ID, "agent"); err != nil {
		t.Fatalf("Second RevokeRole failed: %v", err)
	}

	hasRole, err = f.svc.HasRole(ctx, f.tenant.ID, f.account.ID, "agent", time.Now().UTC())
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if hasRole {
		t.Error("Expected role ineffective after revoke")
	}

	// Re-granting after a revoke starts a fresh grant.
	regrant, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "agent", nil)
	if err != nil {
		t.Fatalf("Re-grant failed: %v", err)
	}
	if regrant.ID == role.ID {
		t.Error("Expected a new grant row on re-grant")
	}
}

func TestMembershipService_SuspensionDisablesRoles(t *testing.T) {
	f := newMembershipFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddMember(ctx, f.tenant.ID, f.account.ID, nil); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if _, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "admin", nil); err != nil {
		t.Fatalf("GrantRole failed: %v", err)
	}

	if err := f.svc.SuspendMember(ctx, f.tenant.ID, f.account.ID); err != nil {
		t.Fatalf("SuspendMember failed: %v", err)
	}

	// Grants remain stored but are not effective while suspended.
	hasRole, err := f.svc.HasRole(ctx, f.tenant.ID, f.account.ID, "admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if hasRole {
		t.Error("Expected roles ineffective while suspended")
	}

	// New grants on a suspended membership are rejected.
	if _, err := f.svc.GrantRole(ctx, f.tenant.ID, f.account.ID, "agent", nil); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition granting on suspended member, got %v", err)
	}

	if err := f.svc.ResumeMember(ctx, f.tenant.ID, f.account.ID); err != nil {
		t.Fatalf("ResumeMember failed: %v", err)
	}
	hasRole, err = f.svc.HasRole(ctx, f.tenant.ID, f.account.ID, "admin", time.Now().UTC())
	if err != nil {
		t.Fatalf("HasRole failed: %v", err)
	}
	if !hasRole {
		t.Error("Expected roles effective again after resume")
	}
}
