// Package telemetry wires OpenTelemetry tracing and metrics for thoughtd.
//
// Telemetry is disabled by default. When enabled it exports spans and
// metrics over OTLP (gRPC or HTTP/protobuf) to a collector, sets the
// global providers and installs W3C trace context propagation.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
//	defer tel.Shutdown(context.Background())
//	st, _ := store.New(storeCfg, logger, store.WithMeter(tel.Meter("store")), store.WithTracer(tel.Tracer("store")))
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
