package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"vibration-monitor/models"
	"vibration-monitor/vibration"
)

// SessionHeader carries the subscriber's session id to the stream server.
const SessionHeader = "X-Session-ID"

// ErrStreamClosed is the cause reported when the server ends the stream.
var ErrStreamClosed = errors.New("stream closed by server")

// Subscription is a live connection to /stream-signal. Messages arrive in
// the order the server sent them. It implements vibration.MessageSource.
type Subscription struct {
	ID  uuid.UUID
	URL string

	msgs   chan vibration.Message
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe connects to the stream endpoint under baseURL. The returned
// subscription stops delivering when ctx is cancelled or Close is called,
// and then reports a nil Err.
func Subscribe(ctx context.Context, client *http.Client, baseURL string, mode Mode) (*Subscription, error) {
	if client == nil {
		client = http.DefaultClient
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/stream-signal")
	if err != nil {
		return nil, &vibration.TransportError{URL: baseURL, Cause: err}
	}
	q := u.Query()
	q.Set("mode", mode.Name())
	u.RawQuery = q.Encode()

	sub := &Subscription{
		ID:   uuid.New(),
		URL:  u.String(),
		msgs: make(chan vibration.Message, 256),
		done: make(chan struct{}),
	}

	ctx, sub.cancel = context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sub.URL, nil)
	if err != nil {
		sub.cancel()
		return nil, &vibration.TransportError{URL: sub.URL, Cause: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(SessionHeader, sub.ID.String())

	resp, err := client.Do(req)
	if err != nil {
		sub.cancel()
		return nil, &vibration.TransportError{URL: sub.URL, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		sub.cancel()
		return nil, &vibration.TransportError{
			URL:   sub.URL,
			Cause: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))),
		}
	}

	go sub.read(ctx, resp.Body)
	return sub, nil
}

func (s *Subscription) Messages() <-chan vibration.Message { return s.msgs }

// Err is valid once the Messages channel is closed.
func (s *Subscription) Err() error { return s.err }

// Close ends the subscription and waits for the reader to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) read(ctx context.Context, body io.ReadCloser) {
	defer close(s.done)
	defer close(s.msgs)
	defer body.Close()

	reader := NewFrameReader(body)
	origin := 0.0
	started := false
	for {
		frame, err := reader.Next()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				err = ErrStreamClosed
			}
			s.err = &vibration.TransportError{URL: s.URL, Cause: err}
			return
		}

		msg, ok, err := decodeFrame(frame, &origin, &started)
		if err != nil {
			s.err = &vibration.TransportError{URL: s.URL, Cause: err}
			return
		}
		if !ok {
			continue
		}

		select {
		case s.msgs <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// decodeFrame maps a frame onto a pipeline message. Sample times are
// reported in seconds since the first sample of the subscription.
func decodeFrame(frame Frame, origin *float64, started *bool) (vibration.Message, bool, error) {
	switch frame.Event {
	case "", "message":
		var point models.SamplePoint
		if err := json.Unmarshal([]byte(frame.Data), &point); err != nil {
			return vibration.Message{}, false, fmt.Errorf("invalid sample frame: %w", err)
		}
		if !*started {
			*origin = point.Timestamp
			*started = true
		}
		return vibration.SampleMessage(vibration.Sample{
			Time:      point.Timestamp - *origin,
			Amplitude: point.Amplitude,
		}), true, nil
	case "prediction":
		var ev models.PredictionEvent
		if err := json.Unmarshal([]byte(frame.Data), &ev); err != nil {
			return vibration.Message{}, false, fmt.Errorf("invalid prediction frame: %w", err)
		}
		return vibration.ClassificationMessage(vibration.ClassificationEvent{
			Label:         ev.Prediction,
			Confidence:    ev.Confidence,
			Scenario:      ev.Scenario,
			Probabilities: ev.Probabilities,
			Features:      ev.Features,
		}), true, nil
	default:
		return vibration.Message{}, false, nil
	}
}
