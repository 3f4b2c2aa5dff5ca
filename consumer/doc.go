// Package consumer provides ready-made consumers that write one output table
// each: per-stage runtimes, per-event quantities and a per-filter cut flow.
// Each consumer derives its columns from the pipeline settings at Init, so
// the same consumer works across differently configured pipelines.
package consumer
