// Package services defines shared utilities consumed by the generation
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, template names, and engine job
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that let the caller
//     adapter classify any failure into one user-facing kind.
//
// Use these helpers when wiring new integration code so operational
// behaviour (error classification, observability) stays uniform across the
// template loader, the engine client, and the outer boundaries.
package services
