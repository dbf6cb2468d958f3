// Package ws implements the real-time messaging hub: the client registry,
// the frame dispatcher and the per-connection lifecycle.
//
// A Hub multiplexes WebSocket connections grouped by topic. Clients send
// UTF-8 text frames; frames starting with /send_to, /group or /broadcast
// are control commands, anything else fans out to the sender's group (or
// echoes back to an ungrouped sender). All server-to-client frames are
// JSON objects discriminated by their leading field.
//
// Delivery is best-effort: each client owns a bounded send queue drained
// by a single writer goroutine, and the overflow policy either drops the
// oldest queued frame or disconnects the slow consumer.
package ws
