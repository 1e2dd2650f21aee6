// Package preflight provides readiness checks for the execution engine, the
// template directory, and the paths carousel writes to.
//
// These checks run in two contexts:
//   - "carousel serve" runs RunAll at startup and logs every failed check, but
//     still starts so the engine can come up later.
//   - "carousel status" renders the results as a table and exits non-zero
//     when any check fails.
package preflight
