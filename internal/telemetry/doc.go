// Package telemetry sets up OpenTelemetry tracing.
//
// The orchestrator opens a "pipeline.run" span and one child per stage.
// With telemetry enabled, spans go to an OTLP collector over gRPC or
// HTTP/protobuf; otherwise tracers are no-ops and nothing is exported.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(ctx)
//	orch, err := pipeline.New(req, collab, pipeline.WithTracer(tel.Tracer("reposmith")))
//
// Tests use NewTestTelemetry, which records ended spans in memory and offers
// assertions on names, parents, attributes and status.
package telemetry
