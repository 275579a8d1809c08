package pmoupnp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(f.url(f.service.WebSocketURL()), "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	return conn
}

func readSignal(t *testing.T, conn *websocket.Conn) SignalMessage {
	t.Helper()

	var msg SignalMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketSignals(t *testing.T) {
	f := newFixture(t, 10, 2)

	conn := f.dial(t)
	defer conn.Close()

	assert.Equal(t, SignalMessage{Signal: SignalSnapshot, StepCount: 10, CurrentStep: 2}, readSignal(t, conn))
	assert.Equal(t, 1, f.volume.ObserverCount())

	require.NoError(t, f.volume.Set("CurrentStep", uint32(4)))
	assert.Equal(t, SignalMessage{
		Signal:      mainvolume.SignalStepsUpdated,
		StepCount:   10,
		CurrentStep: 4,
		Seq:         1,
	}, readSignal(t, conn))

	require.NoError(t, f.volume.Set("StepCount", uint32(4)))
	msg := readSignal(t, conn)
	assert.Equal(t, uint32(4), msg.StepCount)
	assert.Equal(t, uint32(3), msg.CurrentStep)
	assert.Equal(t, uint64(2), msg.Seq)
}

func TestWebSocketCloseUnsubscribes(t *testing.T) {
	f := newFixture(t, 10, 0)

	conn := f.dial(t)
	readSignal(t, conn)
	require.Equal(t, 1, f.volume.ObserverCount())

	conn.Close()

	assert.Eventually(t, func() bool {
		return f.volume.ObserverCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.volume.Set("CurrentStep", uint32(3)))
}

func TestWebSocketRegistrationFailureCloses(t *testing.T) {
	f := newFixture(t, 10, 0)

	events := make(chan mainvolume.StepsUpdated, 1)
	require.True(t, f.volume.Subscribe(mainvolume.ObserverFunc{
		ID: "ws:taken",
		Fn: func(ev mainvolume.StepsUpdated) error {
			events <- ev
			return nil
		},
	}))

	registered := make(chan bool, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		registered <- f.service.serveWebSocket(conn, "ws:taken", r.RemoteAddr)
	}))
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.False(t, <-registered)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "got %v", err)

	// l'observateur déjà enregistré sous ce nom reste en place
	assert.Equal(t, 1, f.volume.ObserverCount())
	require.NoError(t, f.volume.Set("CurrentStep", uint32(5)))
	assert.Equal(t, uint32(5), (<-events).CurrentStep)
}
