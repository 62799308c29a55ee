package domain

import "testing"

func TestNewPlan_Validation(t *testing.T) {
	tests := []struct {
		name     string
		planName string
		priceRef string
		amount   int64
		currency string
		wantErr  bool
	}{
		{"valid", "Starter", "price_123", 2900, "USD", false},
		{"missing name", "", "price_123", 2900, "USD", true},
		{"missing price ref", "Starter", "", 2900, "USD", true},
		{"bad currency", "Starter", "price_123", 2900, "US", true},
		{"negative amount", "Starter", "price_123", -1, "USD", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlan(tt.planName, tt.priceRef, tt.amount, tt.currency, PlanTypeStandard, BillingCycleMonthly)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !plan.IsActive {
				t.Error("Expected new plan to be active")
			}
		})
	}
}

func TestPlan_MaxFor(t *testing.T) {
	plan := &Plan{
		MaxUsers:             10,
		MaxChannelAccounts:   3,
		MaxWhatsAppAccounts:  2,
		MaxFacebookAccounts:  1,
		MaxInstagramAccounts: 1,
		MaxTelegramAccounts:  1,
	}

	tests := []struct {
		kind ResourceKind
		want int
	}{
		{ResourceUsers, 10},
		{ResourceChannelAccounts, 3},
		{ResourceWhatsAppAccounts, 2},
		{ResourceFacebookAccounts, 1},
		{ResourceInstagramAccounts, 1},
		{ResourceTelegramAccounts, 1},
	}
	for _, tt := range tests {
		got, err := plan.MaxFor(tt.kind)
		if err != nil {
			t.Fatalf("MaxFor(%s) failed: %v", tt.kind, err)
		}
		if got != tt.want {
			t.Errorf("MaxFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}

	if _, err := plan.MaxFor(ResourceKind("bogus")); err == nil {
		t.Error("Expected error for unknown resource kind")
	}
}

func TestChannelType_ResourceKind(t *testing.T) {
	tests := []struct {
		channel ChannelType
		want    ResourceKind
	}{
		{ChannelTypeWhatsApp, ResourceWhatsAppAccounts},
		{ChannelTypeFacebook, ResourceFacebookAccounts},
		{ChannelTypeInstagram, ResourceInstagramAccounts},
		{ChannelTypeTelegram, ResourceTelegramAccounts},
	}
	for _, tt := range tests {
		if got := tt.channel.ResourceKind(); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.channel, got, tt.want)
		}
	}
}
