// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestready/nestready/services/orchestrator/datatypes"
)

// =============================================================================
// Interface Definition
// =============================================================================

// StreamWriter defines the contract for writing NDJSON analysis events to
// HTTP responses.
//
// # Description
//
// StreamWriter abstracts event serialization and writing, enabling
// testability and separation from HTTP response mechanics. Implementations
// write one JSON object per line and flush after every event.
//
// Each event is automatically assigned:
//   - Id: UUID v4 for ordering and deduplication
//   - CreatedAt: Unix timestamp in milliseconds
//   - Hash: SHA-256 hash of event content for integrity
//   - PrevHash: Hash of previous event for chain verification
//
// # Thread Safety
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Assumptions
//
//   - Caller has set Content-Type: application/x-ndjson before writing
//   - ResponseWriter supports http.Flusher
type StreamWriter interface {
	// WriteEvent writes a single event line to the response.
	//
	// # Inputs
	//
	//   - event: StreamEvent to write. Id, CreatedAt, Hash, PrevHash are
	//     auto-set.
	//
	// # Outputs
	//
	//   - error: Non-nil if JSON marshaling or writing failed. A write
	//     failure means the client is gone.
	WriteEvent(event datatypes.StreamEvent) error

	// WriteError writes a terminal error event.
	//
	// The message must already be client-safe; internal error details
	// never go on the wire.
	WriteError(errMsg string) error
}

// =============================================================================
// Struct Definition
// =============================================================================

// ndjsonWriter implements StreamWriter for HTTP NDJSON responses.
//
// # Description
//
// ndjsonWriter wraps an http.ResponseWriter to emit one JSON event per
// line. The writer maintains a hash chain for integrity verification:
// each event's Hash is SHA-256 of its content and each event's PrevHash
// links to the previous event.
//
// # Thread Safety
//
// Thread-safe via mutex. Hash chain integrity is maintained across
// concurrent writes.
//
// # Limitations
//
//   - Cannot be reused across requests
type ndjsonWriter struct {
	writer   http.ResponseWriter
	flusher  http.Flusher
	prevHash string
	mu       sync.Mutex
}

// NewStreamWriter creates a StreamWriter for the given ResponseWriter.
//
// # Outputs
//
//   - StreamWriter: Ready to write events.
//   - error: Non-nil if the ResponseWriter doesn't support flushing.
func NewStreamWriter(w http.ResponseWriter) (StreamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}

	return &ndjsonWriter{
		writer:  w,
		flusher: flusher,
	}, nil
}

// SetStreamHeaders sets the NDJSON response headers. Call before the first
// write.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}

// =============================================================================
// Methods
// =============================================================================

// WriteEvent writes a single event line to the response.
func (w *ndjsonWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	event.Id = uuid.New().String()
	event.CreatedAt = time.Now().UnixMilli()
	event.PrevHash = w.prevHash

	event.Hash = w.computeEventHash(event)
	w.prevHash = event.Hash

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(w.writer, "%s\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	w.flusher.Flush()
	return nil
}

// computeEventHash computes the SHA-256 hash of event content.
//
// # Description
//
// Hashes the metadata fields plus the JSON of the payload fields so the
// chain covers market snapshots and reports, not just text.
//
// # Assumptions
//
//   - Called before setting event.Hash.
func (w *ndjsonWriter) computeEventHash(event datatypes.StreamEvent) string {
	marketJSON := ""
	if event.Market != nil {
		if data, err := json.Marshal(event.Market); err == nil {
			marketJSON = string(data)
		}
	}
	reportJSON := ""
	if event.Report != nil {
		if data, err := json.Marshal(event.Report); err == nil {
			reportJSON = string(data)
		}
	}

	hashInput := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%s|%s",
		event.Id,
		event.Phase,
		event.CreatedAt,
		event.PrevHash,
		event.Summary,
		event.Error,
		marketJSON,
		reportJSON,
	)

	hash := sha256.Sum256([]byte(hashInput))
	return hex.EncodeToString(hash[:])
}

// WriteError writes a terminal error event.
func (w *ndjsonWriter) WriteError(errMsg string) error {
	return w.WriteEvent(datatypes.NewErrorEvent(errMsg))
}
