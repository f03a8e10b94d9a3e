// Package observability wires OpenTelemetry tracing and metrics for the
// endpoint service.
//
// Component installs OTLP/HTTP exporters when enabled; otherwise the
// global no-op providers stay in place:
//
//	obs := observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
//	registry.Register(obs)
//
// Metrics carries the shared instruments:
//
//	metrics, err := observability.NewMetrics(observability.Meter("endpoints"))
//	metrics.RecordOperation(ctx, "router", "embeddings", "ok", elapsed)
//	metrics.RecordUsage(ctx, "embeddings", model, usage.PromptTokens, usage.TotalTokens)
package observability
