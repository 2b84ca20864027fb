package config

import (
	"os"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	os.Setenv("LYNQIO_GATEWAY_KEY", "gw-test-key")
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.APIURL != "https://api.lynqio.com" {
		t.Errorf("APIURL = %q, want default", cfg.APIURL)
	}
	if cfg.AuthURL != "https://auth.lynqio.com" {
		t.Errorf("AuthURL = %q, want default", cfg.AuthURL)
	}
	if cfg.StateDir != ".lynqio" {
		t.Errorf("StateDir = %q, want %q", cfg.StateDir, ".lynqio")
	}
	if cfg.ActivationInterval != "400ms" {
		t.Errorf("ActivationInterval = %q, want %q", cfg.ActivationInterval, "400ms")
	}
	if cfg.ActivationMaxAttempts != 20 {
		t.Errorf("ActivationMaxAttempts = %d, want 20", cfg.ActivationMaxAttempts)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("LYNQIO_API_URL", "http://localhost:8080")
	os.Setenv("LYNQIO_ACTIVATION_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIURL != "http://localhost:8080" {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, "http://localhost:8080")
	}
	if cfg.ActivationMaxAttempts != 5 {
		t.Errorf("ActivationMaxAttempts = %d, want 5", cfg.ActivationMaxAttempts)
	}
}

func TestLoad_GatewayKeyRequired(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error when LYNQIO_GATEWAY_KEY is unset")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_NonPositiveMaxAttemptsFallsBack(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("LYNQIO_ACTIVATION_MAX_ATTEMPTS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ActivationMaxAttempts != 20 {
		t.Errorf("ActivationMaxAttempts = %d, want 20 (default)", cfg.ActivationMaxAttempts)
	}
}

func TestActivationIntervalDuration(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid", "250ms", 250 * time.Millisecond},
		{"invalid", "not-a-duration", 400 * time.Millisecond},
		{"zero", "0", 400 * time.Millisecond},
		{"negative", "-1s", 400 * time.Millisecond},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			setRequired(t)
			os.Setenv("LYNQIO_ACTIVATION_INTERVAL", tc.value)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := cfg.ActivationIntervalDuration(); got != tc.want {
				t.Errorf("ActivationIntervalDuration = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRequestTimeoutDuration(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("LYNQIO_REQUEST_TIMEOUT", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.RequestTimeoutDuration(); got != 10*time.Second {
		t.Errorf("RequestTimeoutDuration = %v, want %v", got, 10*time.Second)
	}

	os.Setenv("LYNQIO_REQUEST_TIMEOUT", "invalid")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.RequestTimeoutDuration(); got != 30*time.Second {
		t.Errorf("RequestTimeoutDuration = %v, want %v (default)", got, 30*time.Second)
	}
}

func TestChatPollIntervalDuration(t *testing.T) {
	os.Clearenv()
	setRequired(t)
	os.Setenv("LYNQIO_CHAT_POLL_INTERVAL", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.ChatPollIntervalDuration(); got != 2*time.Second {
		t.Errorf("ChatPollIntervalDuration = %v, want %v", got, 2*time.Second)
	}
}
