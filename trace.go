package restbind

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/restbind/restbind/endpoint"
)

// callTrace is the persisted form of one resolved request. It carries no
// credential material: the bearer header is attached after resolution and is
// never part of the artifact.
type callTrace struct {
	CallID string          `json:"call_id"`
	Time   time.Time       `json:"time"`
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// traceRecorder persists the most recent resolved request to a fixed
// location for offline inspection. Recording is strictly a side effect:
// failures are logged and never influence the call.
type traceRecorder struct {
	path string
	mu   sync.Mutex
}

// record echoes the resolved request to the debug log and, when a path is
// configured, replaces the trace artifact atomically.
func (r *traceRecorder) record(ctx context.Context, logger *slog.Logger, callID string, resolved *endpoint.ResolvedRequest) {
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.DebugContext(ctx, "request resolved", "body_bytes", len(resolved.Body))
	}
	if r == nil {
		return
	}

	trace := callTrace{
		CallID: callID,
		Time:   time.Now().UTC(),
		Method: string(resolved.Method),
		URL:    resolved.URL,
		Body:   resolved.Body,
	}
	serialized, err := json.Marshal(trace)
	if err != nil {
		logger.ErrorContext(ctx, "failed to serialize call trace", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeFileAtomic(r.path, append(serialized, '\n')); err != nil {
		logger.ErrorContext(ctx, "failed to persist call trace", "error", err, "path", r.path)
	}
}

// writeFileAtomic replaces path through a temp file and rename so readers
// never observe a partially written artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".trace-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
