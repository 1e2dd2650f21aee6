// Package extract pulls the generated text out of an engine result document.
//
// Result documents have no stable schema, so extraction is an ordered list of
// pure probes. Each probe inspects the document and either yields a non-empty
// string or passes. The first match wins; when nothing matches, Extract
// returns a diagnostic string embedding the raw document instead of failing.
//
// Probe order:
//  1. the configured JSONPath, when the template declares one
//  2. <output node>.inputs.<output key> at the top level
//  3. outputs.<output node>: inputs.<output key>, else widgets_values[0]
//  4. prompt.outputs.<output node>: same lookup
//  5. a top-level text field
//  6. a scan of every entry for inputs.<output key> or widgets_values[0]
//  7. the document itself when it is a bare string
package extract
