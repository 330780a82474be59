package config

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// loadError tags a Load failure with the stage that produced it.
type loadError struct {
	stage string // "parse" or "validate"
	err   error
}

func (e *loadError) Error() string { return e.stage + " config: " + e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

var (
	loadMetricsOnce sync.Once
	loadCounter     metric.Int64Counter
)

func recordLoad(ctx context.Context, profile string, err error) {
	loadMetricsOnce.Do(func() {
		c, cerr := otel.Meter("jobsy-identity/config").Int64Counter(
			"config.validation.events",
			metric.WithDescription("Config loads by profile, outcome and failing concern"),
		)
		if cerr == nil {
			loadCounter = c
		}
	})
	if loadCounter == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	loadCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", normalizeConfigProfile(profile)),
		attribute.String("outcome", outcome),
		attribute.String("error_class", classifyConfigLoadError(err)),
		attribute.String("concern", failingConcern(err)),
	))
}

func normalizeConfigProfile(profile string) string {
	if v := strings.ToLower(strings.TrimSpace(profile)); v != "" {
		return v
	}
	return "unknown"
}

func classifyConfigLoadError(err error) string {
	if err == nil {
		return "none"
	}
	var le *loadError
	if errors.As(err, &le) {
		if le.stage == "validate" {
			return "validation"
		}
		return le.stage
	}
	return "load"
}

// failingConcern names the settings group of the first reported problem so
// dashboards can tell bad secrets apart from bad telemetry settings.
func failingConcern(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "JWT_"), strings.Contains(msg, "PEPPER"):
		return "token_secrets"
	case strings.Contains(msg, "TTL_"):
		return "token_ttl"
	case strings.Contains(msg, "DATABASE_URL"):
		return "database"
	case strings.Contains(msg, "COOKIE_"):
		return "cookies"
	case strings.Contains(msg, "OTEL_"):
		return "telemetry"
	default:
		return "general"
	}
}
