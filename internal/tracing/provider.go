package tracing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goaplog "github.com/gxo-labs/goap/pkg/goap/v1/log"
	goaptracing "github.com/gxo-labs/goap/pkg/goap/v1/tracing"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

const (
	defaultServiceName  = "goap"
	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"
	defaultTimeout      = 10 * time.Second
)

// OtelTracerProvider implements goaptracing.TracerProvider on top of the
// OpenTelemetry SDK, or on the official no-op provider when tracing is not
// configured.
type OtelTracerProvider struct {
	provider    trace.TracerProvider
	sdkProvider *sdktrace.TracerProvider
	log         goaplog.Logger
}

// NewNoOpProvider returns a provider whose tracers discard every span.
func NewNoOpProvider() (*OtelTracerProvider, error) {
	return &OtelTracerProvider{provider: noop.NewTracerProvider()}, nil
}

// exporterConfig holds the OTLP exporter settings read from OTEL_* variables.
type exporterConfig struct {
	protocol    string
	endpoint    string
	urlPath     string
	headers     map[string]string
	timeout     time.Duration
	compression string
	insecure    bool
}

// NewProviderFromEnv builds an SDK provider from the standard OTEL_*
// environment variables. It only exports when OTEL_EXPORTER_OTLP_ENDPOINT or
// OTEL_EXPORTER_OTLP_PROTOCOL is set; otherwise (or with
// OTEL_SDK_DISABLED=true) it returns the no-op provider. The global OTel
// provider is never touched.
func NewProviderFromEnv(ctx context.Context, log goaplog.Logger) (*OtelTracerProvider, error) {
	if strings.EqualFold(os.Getenv("OTEL_SDK_DISABLED"), "true") {
		log.Debugf("OpenTelemetry tracing disabled via OTEL_SDK_DISABLED.")
		return NewNoOpProvider()
	}
	cfg, ok, err := exporterConfigFromEnv(log)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Debugf("No OTLP endpoint configured, tracing disabled.")
		return NewNoOpProvider()
	}

	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName())),
		resource.WithProcess(), resource.WithOS(), resource.WithHost(),
	)
	if err != nil {
		log.Warnf("Failed to create OTel resource, using default: %v", err)
		res = resource.Default()
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP %s exporter: %w", cfg.protocol, err)
	}
	log.Infof("Exporting planner traces via OTLP %s to %s (insecure: %t, compression: %q)", cfg.protocol, cfg.endpoint, cfg.insecure, cfg.compression)

	sdkTP := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	return &OtelTracerProvider{provider: sdkTP, sdkProvider: sdkTP, log: log}, nil
}

func exporterConfigFromEnv(log goaplog.Logger) (exporterConfig, bool, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	protocol := strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	if endpoint == "" && protocol == "" {
		return exporterConfig{}, false, nil
	}
	if protocol == "" {
		protocol = "grpc"
	}

	cfg := exporterConfig{
		protocol:    protocol,
		endpoint:    endpoint,
		headers:     parseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		timeout:     parseTimeout(os.Getenv("OTEL_EXPORTER_OTLP_TIMEOUT"), defaultTimeout, log),
		compression: strings.ToLower(os.Getenv("OTEL_EXPORTER_OTLP_COMPRESSION")),
		insecure:    isInsecure(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE"), os.Getenv("OTEL_EXPORTER_OTLP_TRACES_INSECURE")),
	}
	switch protocol {
	case "grpc":
		if cfg.endpoint == "" {
			cfg.endpoint = defaultGRPCEndpoint
		}
	case "http", "http/protobuf":
		if cfg.endpoint == "" {
			cfg.endpoint = defaultHTTPEndpoint
		}
		cfg.urlPath = os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
		if cfg.urlPath == "" {
			cfg.urlPath = "/v1/traces"
		}
	default:
		return exporterConfig{}, false, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
	return cfg, true, nil
}

func newExporter(ctx context.Context, cfg exporterConfig) (sdktrace.SpanExporter, error) {
	if cfg.protocol == "grpc" {
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.endpoint),
			otlptracegrpc.WithHeaders(cfg.headers),
			otlptracegrpc.WithTimeout(cfg.timeout),
		}
		if cfg.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		} else {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
		}
		if cfg.compression == "gzip" {
			opts = append(opts, otlptracegrpc.WithCompressor(gzip.Name))
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.endpoint),
		otlptracehttp.WithURLPath(cfg.urlPath),
		otlptracehttp.WithHeaders(cfg.headers),
		otlptracehttp.WithTimeout(cfg.timeout),
	}
	if cfg.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if cfg.compression == "gzip" {
		opts = append(opts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
	}
	return otlptracehttp.New(ctx, opts...)
}

// GetTracer returns a named tracer from the wrapped provider.
func (p *OtelTracerProvider) GetTracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.provider == nil {
		return noop.NewTracerProvider().Tracer(name, opts...)
	}
	return p.provider.Tracer(name, opts...)
}

// Shutdown flushes pending spans and stops the exporter. It is a no-op for
// the no-op provider.
func (p *OtelTracerProvider) Shutdown(ctx context.Context) error {
	if p.sdkProvider == nil {
		return nil
	}
	err := p.sdkProvider.Shutdown(ctx)
	if errors.Is(err, context.DeadlineExceeded) && p.log != nil {
		p.log.Warnf("Timed out flushing planner traces: %v", err)
	}
	return err
}

// IsEffectivelyNoOp reports whether spans are discarded.
func (p *OtelTracerProvider) IsEffectivelyNoOp() bool {
	return p.sdkProvider == nil
}

func serviceName() string {
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return defaultServiceName
}

// parseHeaders converts "k1=v1,k2=v2" into a map.
func parseHeaders(headerStr string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(headerStr, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		if key = strings.TrimSpace(key); key != "" {
			headers[key] = strings.TrimSpace(value)
		}
	}
	return headers
}

// parseTimeout accepts integer milliseconds (the OTLP convention) or a Go
// duration string.
func parseTimeout(timeoutStr string, fallback time.Duration, log goaplog.Logger) time.Duration {
	if timeoutStr == "" {
		return fallback
	}
	if ms, err := strconv.ParseInt(timeoutStr, 10, 64); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(timeoutStr); err == nil && d >= 0 {
		return d
	}
	log.Warnf("Invalid OTLP timeout '%s', using default %v", timeoutStr, fallback)
	return fallback
}

func isInsecure(flags ...string) bool {
	for _, flag := range flags {
		if strings.EqualFold(strings.TrimSpace(flag), "true") {
			return true
		}
	}
	return false
}

var _ goaptracing.TracerProvider = (*OtelTracerProvider)(nil)
