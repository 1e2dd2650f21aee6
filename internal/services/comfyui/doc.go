// Package comfyui provides the HTTP client for a ComfyUI-style workflow
// execution engine.
//
// # Protocol
//
//	GET  /system_stats       availability probe; any 2xx means available
//	POST /prompt             submit {"prompt": <flat workflow>, "client_id": <uuid>}
//	GET  /history/{job id}   result document for a submitted job
//
// # Entry Points
//
// NewClient: construct a client from Config plus Options.
// Client.CheckAvailability: probe the engine; never returns an error.
// Client.Submit: queue a parameterized workflow and return its JobHandle.
// Client.FetchResult: poll the history endpoint until the result is published.
//
// # Retry Behaviour
//
// Two independent loops exist. Every request retries network-level failures
// with a constant delay (3 attempts, 1s apart by default); HTTP error statuses
// are never retried and surface as *StatusError. FetchResult additionally
// repeats the history lookup while the engine reports the job as not ready
// (HTTP 404 or an empty document), 5 attempts 1s apart by default, and then
// fails with services.ErrResultUnavailable. Context cancellation aborts both
// loops immediately.
package comfyui
