package authcore

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with secret", func(c *Config) {}, false},
		{"short secret", func(c *Config) { c.JWT.Secret = []byte("short") }, true},
		{"access ttl above refresh", func(c *Config) { c.JWT.AccessTTL = 8 * 24 * time.Hour }, true},
		{"unknown signing method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, true},
		{"ed25519 without keys", func(c *Config) { c.JWT.SigningMethod = "ed25519" }, true},
		{"zero session lifetime", func(c *Config) { c.Session.Lifetime = 0 }, true},
		{"jitter above lifetime", func(c *Config) {
			c.Session.JitterEnabled = true
			c.Session.JitterRange = 8 * 24 * time.Hour
		}, true},
		{"otp length out of range", func(c *Config) { c.MFA.OTPLength = 3 }, true},
		{"unknown mfa method", func(c *Config) { c.MFA.Methods = []string{"carrier-pigeon"} }, true},
		{"empty default tenant", func(c *Config) { c.MultiTenant.DefaultTenant = "" }, true},
		{"uncapped sessions allowed", func(c *Config) { c.Session.MaxSessionsPerUser = 0 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigValidateProductionMode(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"default otp", func(c *Config) { c.MFA.DefaultOTP = "000000" }},
		{"rate limiting off", func(c *Config) { c.RateLimit.Enabled = false }},
		{"insecure cookies", func(c *Config) { c.Cookies.Secure = false }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Security.ProductionMode = true
			if err := cfg.Validate(); err != nil {
				t.Fatalf("hardened production config should validate: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected production mode to reject the configuration")
			}
		})
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	_, rdb := newTestRedis(t)

	cfg := testConfig()
	cfg.JWT.Secret = nil

	_, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err == nil {
		t.Fatal("expected Build to fail on an invalid config")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_ = engine

	b := New()
	_, rdb := newTestRedis(t)
	b.WithConfig(testConfig()).WithRedis(rdb)
	// no user store wired
	if _, err := b.Build(); err == nil {
		t.Fatal("expected Build to fail without a user store")
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"15m", 15 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1.5d", 36 * time.Hour, false},
		{" 30s ", 30 * time.Second, false},
		{"", 0, true},
		{"sevendays", 0, true},
		{"xd", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestErrorCodeMatching(t *testing.T) {
	wrapped := &Error{Code: "auth/invalid_credentials", Message: "custom text"}
	if !wrapped.Is(ErrInvalidCredentials) {
		t.Fatal("errors with the same code must match")
	}
	if wrapped.Is(ErrUserNotFound) {
		t.Fatal("errors with different codes must not match")
	}
}
