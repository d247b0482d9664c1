// Package agent handles invocation of the external agent CLI and parsing
// of its output.
//
// The package has two halves:
//
//   - Invoker spawns the agent CLI once per pipeline stage, streams its
//     stdout to an observer, enforces a timeout, and supports cancellation.
//     It knows nothing about pipeline semantics; every runtime failure is
//     reported as a domain.StageResult, classified by FailureKind so the
//     caller can render distinct messages per category.
//
//   - The extraction functions (ExtractJSON, DecodePlan, DecodeImplementation,
//     DecodeReview) recover a structured payload from the agent's raw text
//     response, which may be pure JSON, JSON inside a fenced code block mixed
//     with prose, or not JSON at all. Extraction is strictly two-phase:
//     syntactic isolation of a candidate string, then schema decoding. When
//     both phases fail the decoders return a degraded placeholder carrying a
//     truncated prefix of the raw output, so the pipeline can always proceed
//     instead of throwing.
//
// Process lifecycle notes: the child runs in its own process group (Setpgid)
// so that timeout and cancellation kill the whole group, not just the direct
// child. At most one invocation may be in flight per Invoker; a concurrent
// Invoke fails fast with ErrBusy to keep two agents from mutating the same
// working directory.
package agent
