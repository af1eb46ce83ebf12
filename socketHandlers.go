package main

import (
	"log"
	"net/http"
	"sync"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"

	"vibration-monitor/vibration"
)

const dashboardNamespace = "/"

// Broadcaster is the part of *socketio.Server the dashboard pushes through.
type Broadcaster interface {
	BroadcastToNamespace(namespace string, event string, args ...interface{}) bool
}

type statsMessage struct {
	vibration.StatSnapshot
	SampleCount int `json:"sampleCount"`
}

type classificationMessage struct {
	Prediction    string                   `json:"prediction"`
	Confidence    float64                  `json:"confidence"`
	Scenario      *string                  `json:"scenario"`
	Probabilities map[string]float64       `json:"probabilities,omitempty"`
	Features      map[string]float64       `json:"features,omitempty"`
	Spectrum      []vibration.SpectralPeak `json:"spectrum"`
	Peaks         []vibration.SpectralPeak `json:"peaks"`
	Recorded      bool                     `json:"recorded"`
	SampleCount   int                      `json:"sampleCount"`
}

type statusMessage struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// dashboardController mirrors pipeline output for socket.io clients. The
// pipeline worker writes through the Observer methods while socket handlers
// read the latest snapshot, so the mirror is guarded by a mutex.
type dashboardController struct {
	broadcaster Broadcaster
	historyCap  int

	// statsEvery throttles stats broadcasts to one per n samples.
	statsEvery int

	mu          sync.Mutex
	stats       statsMessage
	lastResult  *classificationMessage
	history     []vibration.HistoryEntry
	status      statusMessage
	sampleTicks int
}

func newDashboardController(b Broadcaster, historyCap int) *dashboardController {
	if historyCap <= 0 {
		historyCap = vibration.DefaultHistoryLimit
	}
	return &dashboardController{
		broadcaster: b,
		historyCap:  historyCap,
		statsEvery:  1,
		status:      statusMessage{State: vibration.StateIdle.String()},
	}
}

func (c *dashboardController) broadcast(event string, payload interface{}) {
	if c.broadcaster == nil {
		return
	}
	c.broadcaster.BroadcastToNamespace(dashboardNamespace, event, payload)
}

func (c *dashboardController) OnSample(stats vibration.StatSnapshot, sampleCount int) {
	c.mu.Lock()
	c.stats = statsMessage{StatSnapshot: stats, SampleCount: sampleCount}
	c.sampleTicks++
	emit := c.sampleTicks%c.statsEvery == 0
	msg := c.stats
	c.mu.Unlock()

	if emit {
		c.broadcast("stats", msg)
	}
}

func (c *dashboardController) OnClassification(outcome vibration.ClassificationOutcome) {
	msg := classificationMessage{
		Prediction:    outcome.Event.Label,
		Confidence:    outcome.Event.Confidence,
		Scenario:      outcome.Event.Scenario,
		Probabilities: outcome.Event.Probabilities,
		Features:      outcome.Event.Features,
		Spectrum:      outcome.Spectrum,
		Peaks:         outcome.Peaks,
		Recorded:      outcome.Recorded,
		SampleCount:   outcome.SampleCount,
	}

	c.mu.Lock()
	c.lastResult = &msg
	var history []vibration.HistoryEntry
	if outcome.Recorded && outcome.Entry != nil {
		c.history = append([]vibration.HistoryEntry{*outcome.Entry}, c.history...)
		if len(c.history) > c.historyCap {
			c.history = c.history[:c.historyCap]
		}
		history = c.historySnapshot()
	}
	c.mu.Unlock()

	c.broadcast("classification", msg)
	if history != nil {
		c.broadcast("history", history)
	}
}

// setStatus records and broadcasts a pipeline state change.
func (c *dashboardController) setStatus(state vibration.State, err error) {
	msg := statusMessage{State: state.String()}
	if err != nil {
		msg.Error = err.Error()
	}

	c.mu.Lock()
	c.status = msg
	c.mu.Unlock()

	c.broadcast("status", msg)
}

// historySnapshot must be called with mu held.
func (c *dashboardController) historySnapshot() []vibration.HistoryEntry {
	out := make([]vibration.HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// emitSnapshot sends the current state to one newly connected client.
func (c *dashboardController) emitSnapshot(socket socketio.Conn) {
	c.mu.Lock()
	status := c.status
	stats := c.stats
	last := c.lastResult
	history := c.historySnapshot()
	c.mu.Unlock()

	socket.Emit("status", status)
	socket.Emit("stats", stats)
	if last != nil {
		socket.Emit("classification", *last)
	}
	socket.Emit("history", history)
}

func (c *dashboardController) handleRequestHistory(socket socketio.Conn) {
	c.mu.Lock()
	history := c.historySnapshot()
	c.mu.Unlock()

	socket.Emit("history", history)
}

func newSocketServer(controller *dashboardController) *socketio.Server {
	allowOriginFunc := func(r *http.Request) bool {
		return true
	}

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect(dashboardNamespace, func(socket socketio.Conn) error {
		socket.SetContext("")
		log.Printf("CONNECTED: %s, remote addr: %s\n", socket.ID(), socket.RemoteAddr())
		controller.emitSnapshot(socket)
		return nil
	})

	server.OnEvent(dashboardNamespace, "requestHistory", func(socket socketio.Conn) {
		controller.handleRequestHistory(socket)
	})

	server.OnError(dashboardNamespace, func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	server.OnDisconnect(dashboardNamespace, func(s socketio.Conn, reason string) {
		log.Printf("Socket disconnected - ID: %s, Reason: %s\n", s.ID(), reason)
	})

	return server
}
