package observability

import (
	"testing"

	"github.com/smallbiznis/netbill/internal/config"
)

func TestLoadConfigFromAppConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppName:      " ",
		Environment:  "production",
		AppVersion:   "1.2.3",
		OTLPEndpoint: " collector:4317 ",
		Telemetry: config.TelemetryConfig{
			LogLevel:        "info",
			Enabled:         true,
			TracesProtocol:  "grpc",
			MetricsProtocol: "http",
			SamplingRatio:   4,
		},
	})

	if cfg.ServiceName != "netbill" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.OtelEndpoint != "collector:4317" {
		t.Fatalf("unexpected endpoint %q", cfg.OtelEndpoint)
	}
	if cfg.TracesProtocol != "grpc" || cfg.MetricsProtocol != "http" {
		t.Fatalf("protocols not carried per signal: %+v", cfg)
	}
	if cfg.SamplingRatio != 1 {
		t.Fatalf("expected sampling ratio clamped to 1, got %v", cfg.SamplingRatio)
	}
	if cfg.Debug() {
		t.Fatal("production at info level should not be debug")
	}
}

func TestDebugInDevelopment(t *testing.T) {
	if !(Config{Environment: "Development"}).Debug() {
		t.Fatal("development environment should enable debug")
	}
	if !(Config{Environment: "production", LogLevel: "debug"}).Debug() {
		t.Fatal("debug level should enable debug")
	}
}
