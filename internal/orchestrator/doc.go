// Package orchestrator drives text generation against a remote compute
// service that bounds the work of a single call. It is structured into small
// files by concern:
//
//   - backend.go: Backend, the six remote operations consumed.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsProtocolViolation, IsRemoteCallFailure).
//   - call.go: the single choke point every remote call goes through.
//   - chunk.go: ChunkDriver, the layer-bounded advance loop.
//   - phase.go: PhaseController, prompt-ingestion and decode steps.
//   - orchestrator.go: Generate, Resume and GenerateAll.
//   - checkpoint.go: the resumable state carried by failures.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: Prometheus instrumentation of remote calls.
//
// The session is owned by the caller's goroutine for the whole generation.
// Cancellation is cooperative: the context is consulted between remote calls
// and never aborts one that is already in flight.
package orchestrator
