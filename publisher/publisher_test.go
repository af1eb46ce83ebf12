package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibration-monitor/vibration"
)

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func startBroker(t *testing.T) string {
	t.Helper()

	address := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	server := mochi.New(nil)
	require.NoError(t, server.AddHook(new(auth.AllowHook), nil))
	require.NoError(t, server.AddListener(listeners.NewTCP(listeners.Config{
		Type:    "tcp",
		ID:      "test",
		Address: address,
	})))
	require.NoError(t, server.Serve())
	t.Cleanup(func() { _ = server.Close() })

	return "tcp://" + address
}

func subscribe(t *testing.T, broker, topic string) <-chan []byte {
	t.Helper()

	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID("test-subscriber")
	client := mqtt.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { client.Disconnect(100) })

	messages := make(chan []byte, 4)
	sub := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		messages <- msg.Payload()
	})
	require.True(t, sub.WaitTimeout(5*time.Second))
	require.NoError(t, sub.Error())
	return messages
}

func TestPublisherSendsAcceptedEntries(t *testing.T) {
	broker := startBroker(t)
	messages := subscribe(t, broker, DefaultTopic)

	pub, err := New(Config{Broker: broker, QoS: 1})
	require.NoError(t, err)
	defer pub.Close(context.Background())

	// Suppressed outcomes are not published.
	pub.OnClassification(vibration.ClassificationOutcome{
		Event: vibration.ClassificationEvent{Label: "normal"},
	})

	scenario := "fault/ball"
	entry := vibration.HistoryEntry{
		Timestamp:   "2024-03-01T12:00:00.000Z",
		Label:       "ball",
		Confidence:  0.92,
		SampleCount: 1024,
		Signal:      []float64{0.1, 0.2},
	}
	pub.OnClassification(vibration.ClassificationOutcome{
		Event:    vibration.ClassificationEvent{Label: "ball", Scenario: &scenario},
		Peaks:    []vibration.SpectralPeak{{Frequency: 398.4, Magnitude: 0.5}},
		Entry:    &entry,
		Recorded: true,
	})

	select {
	case raw := <-messages:
		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "ball", got["prediction"])
		assert.Equal(t, "fault/ball", got["scenario"])
		assert.Equal(t, 1024.0, got["sampleCount"])
		assert.Len(t, got["peaks"], 1)
	case <-time.After(5 * time.Second):
		t.Fatal("no history message received")
	}

	select {
	case raw := <-messages:
		t.Fatalf("unexpected extra message: %s", raw)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewFailsWithoutBroker(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Broker: fmt.Sprintf("tcp://127.0.0.1:%d", freePort(t))})
	assert.Error(t, err)
}
