package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jobsy/identity-service/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "jobsy-identity"

type AppMetrics struct {
	authLoginCounter        metric.Int64Counter
	authRefreshCounter      metric.Int64Counter
	authLogoutCounter       metric.Int64Counter
	authRegisterCounter     metric.Int64Counter
	refreshReuseCounter     metric.Int64Counter
	accessTokenCheckCounter metric.Int64Counter
	passwordResetCounter    metric.Int64Counter
	userActivationCounter   metric.Int64Counter
	repositoryOpCounter     metric.Int64Counter
	sessionCleanupCounter   metric.Int64Counter
	rateLimitCounter        metric.Int64Counter
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	var mp *sdkmetric.MeterProvider
	if !cfg.OTELMetricsEnabled {
		mp = sdkmetric.NewMeterProvider()
		logger.Info("otel metrics disabled")
	} else {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
		if cfg.OTELExporterOTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		res, err := newResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create metric resource: %w", err)
		}
		reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	}
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var (
		m   AppMetrics
		err error
	)
	counters := []struct {
		name   string
		target *metric.Int64Counter
	}{
		{"auth.login.attempts", &m.authLoginCounter},
		{"auth.refresh.attempts", &m.authRefreshCounter},
		{"auth.logout.attempts", &m.authLogoutCounter},
		{"auth.register.attempts", &m.authRegisterCounter},
		{"auth.refresh.reuse_detected", &m.refreshReuseCounter},
		{"auth.access_token.validations", &m.accessTokenCheckCounter},
		{"auth.password_reset.events", &m.passwordResetCounter},
		{"admin.user.activation_changes", &m.userActivationCounter},
		{"repository.operations", &m.repositoryOpCounter},
		{"session.cleanup.rows", &m.sessionCleanupCounter},
		{"http.rate_limit.decisions", &m.rateLimitCounter},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name)
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}
	return &m, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

func RecordAuthLogin(status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authLoginCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRefresh(status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authRefreshCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthLogout(status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authLogoutCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("status", status)))
}

func RecordAuthRegister(role, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.authRegisterCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("status", status),
		),
	)
}

// RecordRefreshReuseDetected counts mass revocations triggered by refresh token replay.
func RecordRefreshReuseDetected(ctx context.Context, revokedSessions int64) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.refreshReuseCounter.Add(ctx, 1, metric.WithAttributes(attribute.Int64("revoked_sessions", revokedSessions)))
}

func RecordAccessTokenValidation(ctx context.Context, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.accessTokenCheckCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func RecordPasswordReset(stage, status string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.passwordResetCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

func RecordUserActivationChange(active bool) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.userActivationCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("active", active)))
}

func RecordRepositoryOperation(ctx context.Context, repo, operation, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.repositoryOpCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("repository", repo),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

func RecordSessionCleanup(ctx context.Context, kind string, rows int64) {
	m := currentMetrics()
	if m == nil || rows <= 0 {
		return
	}
	m.sessionCleanupCounter.Add(ctx, rows, metric.WithAttributes(attribute.String("kind", kind)))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("scope", scope),
			attribute.String("outcome", outcome),
			attribute.String("mode", mode),
		),
	)
}
