package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_DBNAME",
		"REDIS_HOST", "REDIS_PORT",
		"KAFKA_BROKERS",
		"BILLING_PROVIDER", "BILLING_SECRET_KEY",
		"LIFECYCLE_MAX_PAYMENT_RETRIES", "LIFECYCLE_GRACE_PERIOD",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "connectflow-core" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "connectflow-core")
	}

	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}

	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}

	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want %d", cfg.Redis.Port, 6379)
	}

	if cfg.Billing.Provider != "stripe" {
		t.Errorf("Billing.Provider = %q, want %q", cfg.Billing.Provider, "stripe")
	}

	if cfg.Lifecycle.MaxPaymentRetries != 3 {
		t.Errorf("Lifecycle.MaxPaymentRetries = %d, want %d", cfg.Lifecycle.MaxPaymentRetries, 3)
	}

	if cfg.Lifecycle.GracePeriod != 168*time.Hour {
		t.Errorf("Lifecycle.GracePeriod = %v, want %v", cfg.Lifecycle.GracePeriod, 168*time.Hour)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("DATABASE_HOST", "db.example.com")
	os.Setenv("LIFECYCLE_MAX_PAYMENT_RETRIES", "5")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("DATABASE_HOST")
		os.Unsetenv("LIFECYCLE_MAX_PAYMENT_RETRIES")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-app")
	}

	if cfg.Database.Host != "db.example.com" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.example.com")
	}

	if cfg.Lifecycle.MaxPaymentRetries != 5 {
		t.Errorf("Lifecycle.MaxPaymentRetries = %d, want %d", cfg.Lifecycle.MaxPaymentRetries, 5)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN() = %q, want %q", dsn, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if addr := cfg.Addr(); addr != expected {
		t.Errorf("Addr() = %q, want %q", addr, expected)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		App:      AppConfig{Name: "test", Environment: "development"},
		Database: DatabaseConfig{Host: "localhost", DBName: "testdb"},
		Lifecycle: LifecycleConfig{
			MaxPaymentRetries: 3,
			InitialBackoff:    24 * time.Hour,
			BackoffMultiplier: 2.0,
			GracePeriod:       7 * 24 * time.Hour,
		},
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing app name",
			mutate:  func(c *Config) { c.App.Name = "" },
			wantErr: true,
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
		},
		{
			name:    "missing database name",
			mutate:  func(c *Config) { c.Database.DBName = "" },
			wantErr: true,
		},
		{
			name:    "zero payment retries",
			mutate:  func(c *Config) { c.Lifecycle.MaxPaymentRetries = 0 },
			wantErr: true,
		},
		{
			name:    "backoff multiplier below one",
			mutate:  func(c *Config) { c.Lifecycle.BackoffMultiplier = 0.5 },
			wantErr: true,
		},
		{
			name:    "zero grace period",
			mutate:  func(c *Config) { c.Lifecycle.GracePeriod = 0 },
			wantErr: true,
		},
		{
			name: "missing billing key in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Billing.SecretKey = ""
			},
			wantErr: true,
		},
		{
			name: "billing key set in production",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Billing.SecretKey = "sk_live_x"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLifecycleConfig_Defaults(t *testing.T) {
	os.Unsetenv("LIFECYCLE_INITIAL_BACKOFF")
	os.Unsetenv("LIFECYCLE_BACKOFF_MULTIPLIER")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Lifecycle.InitialBackoff != 24*time.Hour {
		t.Errorf("Lifecycle.InitialBackoff = %v, want %v", cfg.Lifecycle.InitialBackoff, 24*time.Hour)
	}
	if cfg.Lifecycle.BackoffMultiplier != 2.0 {
		t.Errorf("Lifecycle.BackoffMultiplier = %v, want %v", cfg.Lifecycle.BackoffMultiplier, 2.0)
	}
	if cfg.Lifecycle.SweepInterval != time.Minute {
		t.Errorf("Lifecycle.SweepInterval = %v, want %v", cfg.Lifecycle.SweepInterval, time.Minute)
	}
	if cfg.Lifecycle.SweepBatchSize != 100 {
		t.Errorf("Lifecycle.SweepBatchSize = %d, want %d", cfg.Lifecycle.SweepBatchSize, 100)
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "production"},
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}

	cfg.App.Environment = "development"
	if cfg.IsProduction() {
		t.Error("IsProduction() = true, want false")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{
		App: AppConfig{Environment: "development"},
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}

	cfg.App.Environment = "production"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false")
	}
}
