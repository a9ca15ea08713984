// Package pipeline runs the stages of one event in order: deduplication,
// verification, then distance classification, and persists both caches once
// the distance stage has completed.
//
// Every run is tagged with a run_id. At the end of each stage the pipeline
// logs the stage counts and one consolidated line per warning type, and
// feeds the stage counters.
//
// A run that fails, or whose context is cancelled, flushes nothing: results
// computed so far are discarded together with their cache entries, and the
// next run starts again from the persisted state.
package pipeline
