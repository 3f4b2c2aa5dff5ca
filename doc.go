// Package pipeflow runs events through a fixed sequence of typed stages and
// writes per-run summaries to an output store. A Pipeline is built from
// settings that name its processors and consumers; each event gets a fresh
// product that producers fill, filters judge, and consumers read.
//
// Stages are plain Go values. Producers derive quantities and attach them to
// the product, filters record a pass or reject decision in the event's
// FilterResult, and consumers observe the finished product together with
// the sealed FilterResult. Stages named in settings are resolved through a
// Registry; stages can also be added directly before Init.
//
// # Settings
//
// Config loads from a JSON file. Processors are listed as
// "producer:Name" or "filter:Name" and run in that order; consumers are listed
// separately. Config also selects the filter policy and the output system.
//
// # Output
//
// Consumers write named tables into a Store. The file store keeps one JSON
// document per output file, the memory store keeps tables for tests, and the
// stream stores publish schema, row and end messages through Watermill
// (channel, io, kafka, nats, rabbitmq or http).
//
// # Middleware
//
// Every stage call passes through a middleware chain. The defaults add an
// OpenTelemetry span per call and convert panics into stage errors.
// StageHooks give OnStageStart, OnStageDone and OnStageError callbacks, and
// StageMetrics exports Prometheus histograms and counters per stage.
//
// # Consumers
//
// RunTimeConsumer records the microseconds each processor spent per event,
// NtupleConsumer writes configured quantities for accepted events, and
// CutFlowConsumer tabulates how many events each filter passed.
package pipeflow
