/*
Package runtime provides the core event processing infrastructure for pipeflow.

# Architecture Overview

A Pipeline runs each event through three phases. Producers fill a fresh
product, filters record pass or reject decisions in a FilterResult, and
consumers read the product together with the sealed result. Every producer
and filter call goes through a middleware chain, and the time it took is
stored on the product in microseconds.

# Package Structure

## Pipeline (pipeline.go)

The Pipeline struct owns the stage lists and the run lifecycle:
  - Init resolves the settings through a Registry and validates the stages
  - ProcessEvent runs the three phases for one event
  - Finish flushes every consumer exactly once

## Stages (stages.go, node.go, registry.go)

Stage interfaces and helpers:
  - stages.go: Producer, Filter and Consumer interfaces plus ConsumerBase
  - node.go: process node kinds and "kind:name" parsing
  - registry.go: named stage constructors

## Product and Filter Result (product.go, filter_result.go)

ProductBase carries per-stage run times and the phase guard. FilterResult
holds decisions in evaluation order and is sealed before consumers run.

## Middleware (middleware.go, hooks.go)

The middleware chain wraps each stage call:
  - Tracer: OpenTelemetry spans per stage call
  - Metrics: Prometheus stage durations and errors
  - Hooks: start, done and error callbacks
  - Recoverer: panic recovery into stage errors

## Stats & Monitoring (metrics.go, stats.go)

Per-stage call counts and latency percentiles (p50, p95, p99), plus the
Prometheus collectors in StageMetrics.

## Runner (runner.go)

Runner drives one event sequence through several pipelines.

# Sub-packages

  - config/: Pipeline configuration with validation
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for run and message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - output/: Table stores (file, memory and Watermill streams)
  - transport/: Watermill publishers for stream output (Kafka, RabbitMQ, NATS, etc.)

# Usage Example

	cfg := &config.Config{
		PipelineName: "detector",
		Processors:   []string{"producer:Energy", "filter:MinEnergy"},
		Consumers:    []string{"CutFlowConsumer"},
	}

	p := runtime.NewPipeline[Event](cfg, newProduct,
		runtime.WithRegistry(reg),
		runtime.WithStore(store),
	)
	if err := p.Init(); err != nil {
		return err
	}
	for _, e := range events {
		if err := p.Handle(ctx, e); err != nil {
			return err
		}
	}
	return p.Finish()
*/
package runtime
