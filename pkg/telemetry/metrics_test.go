package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func setupTelemetryDisabled(t *testing.T) func() {
	ctx := context.Background()
	cfg := &Config{
		Enabled:     false,
		ServiceName: "test-service",
	}

	_, err := Init(ctx, cfg)
	require.NoError(t, err)

	return func() {
		_ = Shutdown(ctx)
	}
}

func TestNewCounter_Disabled(t *testing.T) {
	cleanup := setupTelemetryDisabled(t)
	defer cleanup()

	counter, err := NewCounter(MetricOpts{
		Name:        "test_counter",
		Description: "A test counter",
		Unit:        "1",
	})
	require.NoError(t, err)
	assert.NotNil(t, counter)
}

func TestCounter_Add_Disabled(t *testing.T) {
	cleanup := setupTelemetryDisabled(t)
	defer cleanup()

	counter, err := NewCounter(MetricOpts{
		Name:        "test_counter_add",
		Description: "A test counter for Add",
		Unit:        "1",
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	counter.Add(ctx, 5)
	counter.Add(ctx, 10, attribute.String("key", "value"))
	counter.Inc(ctx)
	counter.Inc(ctx, attribute.String("key", "value"))
}

func TestNewHistogram_Disabled(t *testing.T) {
	cleanup := setupTelemetryDisabled(t)
	defer cleanup()

	histogram, err := NewHistogram(MetricOpts{
		Name:        "test_histogram",
		Description: "A test histogram",
		Unit:        "ms",
	})
	require.NoError(t, err)
	assert.NotNil(t, histogram)

	ctx := context.Background()

	// Should not panic
	histogram.Record(ctx, 123.45)
	histogram.Record(ctx, 67.89, attribute.String("key", "value"))
}

func TestUpDownCounter_Disabled(t *testing.T) {
	cleanup := setupTelemetryDisabled(t)
	defer cleanup()

	counter, err := NewUpDownCounter(MetricOpts{
		Name:        "test_updown_counter",
		Description: "A test up-down counter",
		Unit:        "1",
	})
	require.NoError(t, err)

	ctx := context.Background()

	// Should not panic
	counter.Add(ctx, 5)
	counter.Add(ctx, -3)
	counter.Inc(ctx)
	counter.Dec(ctx)
	counter.Inc(ctx, attribute.String("key", "value"))
	counter.Dec(ctx, attribute.String("key", "value"))
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name     string
		attrFunc func() attribute.KeyValue
		expected attribute.KeyValue
	}{
		{
			name: "ServiceAttr",
			attrFunc: func() attribute.KeyValue {
				return ServiceAttr("my-service")
			},
			expected: attribute.String(AttrServiceName, "my-service"),
		},
		{
			name: "EnvironmentAttr",
			attrFunc: func() attribute.KeyValue {
				return EnvironmentAttr("production")
			},
			expected: attribute.String(AttrEnvironment, "production"),
		},
		{
			name: "ErrorTypeAttr",
			attrFunc: func() attribute.KeyValue {
				return ErrorTypeAttr("validation_error")
			},
			expected: attribute.String(AttrErrorType, "validation_error"),
		},
		{
			name: "TenantIDAttr",
			attrFunc: func() attribute.KeyValue {
				return TenantIDAttr("tenant_789")
			},
			expected: attribute.String(AttrTenantID, "tenant_789"),
		},
		{
			name: "SubscriptionStatusAttr",
			attrFunc: func() attribute.KeyValue {
				return SubscriptionStatusAttr("past_due")
			},
			expected: attribute.String(AttrSubscriptionStatus, "past_due"),
		},
		{
			name: "ChannelTypeAttr",
			attrFunc: func() attribute.KeyValue {
				return ChannelTypeAttr("whatsapp")
			},
			expected: attribute.String(AttrChannelType, "whatsapp"),
		},
		{
			name: "ResourceKindAttr",
			attrFunc: func() attribute.KeyValue {
				return ResourceKindAttr("whatsapp_accounts")
			},
			expected: attribute.String(AttrResourceKind, "whatsapp_accounts"),
		},
		{
			name: "DenialReasonAttr",
			attrFunc: func() attribute.KeyValue {
				return DenialReasonAttr("quota_exceeded")
			},
			expected: attribute.String(AttrDenialReason, "quota_exceeded"),
		},
		{
			name: "EventTypeAttr",
			attrFunc: func() attribute.KeyValue {
				return EventTypeAttr("payment.failed")
			},
			expected: attribute.String(AttrEventType, "payment.failed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.attrFunc()
			assert.Equal(t, tt.expected.Key, got.Key)
			assert.Equal(t, tt.expected.Value, got.Value)
		})
	}
}

func TestMetricConstants(t *testing.T) {
	assert.Equal(t, "service.name", AttrServiceName)
	assert.Equal(t, "environment", AttrEnvironment)
	assert.Equal(t, "error.type", AttrErrorType)
	assert.Equal(t, "tenant.id", AttrTenantID)
	assert.Equal(t, "subscription.status", AttrSubscriptionStatus)
	assert.Equal(t, "channel.type", AttrChannelType)
	assert.Equal(t, "resource.kind", AttrResourceKind)
	assert.Equal(t, "denial.reason", AttrDenialReason)
	assert.Equal(t, "event.type", AttrEventType)
}
