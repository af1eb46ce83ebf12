package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrStreamingUnsupported is returned when the response writer cannot flush.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// EventWriter writes text/event-stream frames and flushes after each one.
type EventWriter struct {
	w       io.Writer
	flusher http.Flusher
}

// NewEventWriter sets the event-stream headers on w.
func NewEventWriter(w http.ResponseWriter) (*EventWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &EventWriter{w: w, flusher: flusher}, nil
}

// WriteData sends v as JSON on the default channel.
func (e *EventWriter) WriteData(v any) error {
	return e.WriteEvent("", v)
}

// WriteEvent sends v as JSON under the named event. An empty name uses the
// default channel.
func (e *EventWriter) WriteEvent(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var b strings.Builder
	if name != "" {
		b.WriteString("event: ")
		b.WriteString(name)
		b.WriteByte('\n')
	}
	b.WriteString("data: ")
	b.Write(payload)
	b.WriteString("\n\n")

	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return err
	}
	e.flusher.Flush()
	return nil
}

// Frame is one decoded server-sent event.
type Frame struct {
	Event string
	Data  string
	ID    string
}

// FrameReader decodes server-sent events from a stream.
type FrameReader struct {
	scanner *bufio.Scanner
}

func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &FrameReader{scanner: scanner}
}

// Next returns the next complete frame. Comment lines and frames without
// data are skipped. At the end of the stream it returns io.EOF; a trailing
// frame that is not terminated by a blank line is dropped.
func (fr *FrameReader) Next() (Frame, error) {
	var frame Frame
	var data []string
	for fr.scanner.Scan() {
		line := strings.TrimSuffix(fr.scanner.Text(), "\r")
		if line == "" {
			if len(data) == 0 {
				frame = Frame{}
				continue
			}
			frame.Data = strings.Join(data, "\n")
			return frame, nil
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			frame.Event = value
		case "data":
			data = append(data, value)
		case "id":
			frame.ID = value
		}
	}
	if err := fr.scanner.Err(); err != nil {
		return Frame{}, err
	}
	return Frame{}, io.EOF
}
