package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "queuedesk" {
		t.Errorf("database name = %q, want queuedesk", cfg.Database.Name)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q, want json", cfg.Log.Format)
	}
	if cfg.Monitoring.MetricsPath != "/metrics" {
		t.Errorf("metrics path = %q, want /metrics", cfg.Monitoring.MetricsPath)
	}
	if cfg.Monitoring.Tracing.Enabled {
		t.Error("tracing should be disabled by default")
	}
	if cfg.Automation.EvalTimeout != 5*time.Second {
		t.Errorf("eval timeout = %v, want 5s", cfg.Automation.EvalTimeout)
	}
	if cfg.Automation.MaxTriggers != 500 {
		t.Errorf("max triggers = %d, want 500", cfg.Automation.MaxTriggers)
	}
	if !cfg.Security.RateLimiting.Enabled || cfg.Security.RateLimiting.RequestsPerMinute != 60 {
		t.Errorf("unexpected rate limiting defaults: %+v", cfg.Security.RateLimiting)
	}
}

func TestLoadFromViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("server.host", "127.0.0.1")
	viper.Set("server.port", 9090)
	viper.Set("jwt.secret", "from-viper")
	viper.Set("automation.maxtriggers", 25)
	viper.Set("security.ratelimiting.enabled", false)

	cfg := Load()
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.JWT.Secret != "from-viper" {
		t.Errorf("jwt secret = %q, want from-viper", cfg.JWT.Secret)
	}
	if cfg.Automation.MaxTriggers != 25 {
		t.Errorf("max triggers = %d, want 25", cfg.Automation.MaxTriggers)
	}
	if cfg.Security.RateLimiting.Enabled {
		t.Error("rate limiting should be disabled")
	}
}
