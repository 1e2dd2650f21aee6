// Package generation is the boundary callers use to turn a prompt into
// generated text.
//
// Service.Generate runs one self-contained round trip: probe the engine, load
// the template, parameterize it, submit, wait, poll, and extract. It returns
// the extracted content as a single-element slice. Every failure is returned
// as a *Error carrying exactly one Kind and a short message fit for display;
// the underlying detail is logged and kept in Error.Err.
package generation
