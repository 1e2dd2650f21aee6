// Package api exposes the generation service over HTTP and MCP.
//
// # Routes
//
//	POST /api/generate    run one generation, body {"prompt", "template"?, "includeRaw"?}
//	GET  /api/status      engine availability and the default template
//	GET  /api/templates   template names available to the loader
//	GET  /healthz         liveness
//	/mcp/sse, /mcp/message  MCP over SSE with the generate_carousel_text tool
//
// # Errors
//
// Failed generations answer with ErrorResponse: the generation kind, its short
// message, and the same message rendered as display lines. The HTTP status is
// derived from the kind by StatusFor.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Each
// request gets an X-Request-ID (echoed when the caller supplies one) that is
// attached to the request context so every log line of the call carries it.
package api
