package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dusk-indust/genpipe/internal/orchestrator"
)

// SSE event names.
const (
	EventProgress = "progress"
	EventDone     = "done"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSEWriter wrapping the given ResponseWriter.
// Writes still succeed without http.Flusher support but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: f}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	sw.w.WriteHeader(http.StatusOK)
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// WriteEvent writes one progress event:
//
//	event: progress|done
//	data: {json}
func (sw *SSEWriter) WriteEvent(event orchestrator.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	name := EventProgress
	if event.Final {
		name = EventDone
	}
	if _, err := fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// StreamEvent is one event read by ReadEvents.
type StreamEvent struct {
	Name  string
	Event orchestrator.ProgressEvent
	Err   error
}

// ReadEvents parses Server-Sent Events from body and delivers them on the
// returned channel. The channel is closed when the body is exhausted, a read
// error occurs, or ctx is cancelled. The body is closed when reading
// finishes. Malformed JSON produces a StreamEvent with Err set; the reader
// continues.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	ch := make(chan StreamEvent)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		var name string
		var dataBuf strings.Builder

		flush := func() {
			if dataBuf.Len() > 0 {
				emit(ctx, ch, name, dataBuf.String())
			}
			name = ""
			dataBuf.Reset()
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				flush()
				return
			}
			line := scanner.Text()

			switch {
			case line == "":
				flush()
			case strings.HasPrefix(line, ":"):
				// Comment.
			case strings.HasPrefix(line, "event:"):
				name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
	}()
	return ch
}

func emit(ctx context.Context, ch chan<- StreamEvent, name, raw string) {
	ev := StreamEvent{Name: name}
	if err := json.Unmarshal([]byte(raw), &ev.Event); err != nil {
		ev.Err = fmt.Errorf("sse: unmarshal event: %w", err)
	}
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
