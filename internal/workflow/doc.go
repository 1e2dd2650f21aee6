// Package workflow loads node-graph workflow templates and turns them into
// engine submissions.
//
// A Template is read fresh from storage on every Load and is never mutated
// afterwards. Parameterize clones it, writes the caller's prompt into the node
// declared as the template's input role, and normalizes every node's inputs to
// the named mapping form the execution engine expects on the wire.
package workflow
