package observability

import (
	"strings"

	"github.com/smallbiznis/netbill/internal/config"
)

// Config is the slice of application config the telemetry stack needs.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled     bool
	OtelEndpoint    string
	TracesProtocol  string
	MetricsProtocol string
	SamplingRatio   float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "netbill"
	}
	t := cfg.Telemetry
	return Config{
		ServiceName:     serviceName,
		Environment:     strings.TrimSpace(cfg.Environment),
		Version:         strings.TrimSpace(cfg.AppVersion),
		LogLevel:        t.LogLevel,
		LogFormat:       t.LogFormat,
		OtelEnabled:     t.Enabled,
		OtelEndpoint:    strings.TrimSpace(cfg.OTLPEndpoint),
		TracesProtocol:  t.TracesProtocol,
		MetricsProtocol: t.MetricsProtocol,
		SamplingRatio:   clampRatio(t.SamplingRatio),
	}
}

// Debug reports whether verbose diagnostics (stack traces on errors) are on.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
