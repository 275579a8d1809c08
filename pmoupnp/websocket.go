package pmoupnp

import (
	"net/http"
	"sync"
	"time"

	"gargoton.petite-maison-orange.fr/eric/pmovolume/mainvolume"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	SignalSnapshot = "Snapshot"

	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// SignalMessage is the JSON frame sent to websocket observers.
type SignalMessage struct {
	Signal      string `json:"signal"`
	StepCount   uint32 `json:"step_count"`
	CurrentStep uint32 `json:"current_step"`
	Seq         uint64 `json:"seq"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsObserver forwards the signals of the volume service to one websocket
// client.
type wsObserver struct {
	id     string
	conn   *websocket.Conn
	volume *mainvolume.Service
	queue  chan SignalMessage
	done   chan struct{}
	once   sync.Once
}

func (o *wsObserver) Name() string {
	return o.id
}

func (o *wsObserver) Notify(ev mainvolume.StepsUpdated) error {
	msg := SignalMessage{
		Signal:      mainvolume.SignalStepsUpdated,
		StepCount:   ev.StepCount,
		CurrentStep: ev.CurrentStep,
		Seq:         ev.Seq,
	}

	select {
	case <-o.done:
		return mainvolume.ErrObserverClosed
	default:
	}

	select {
	case o.queue <- msg:
		return nil
	default:
		return mainvolume.ErrObserverBusy
	}
}

// Close unregisters the observer. The connection itself is closed by the
// write loop.
func (o *wsObserver) Close() error {
	o.once.Do(func() {
		close(o.done)
		o.volume.Unsubscribe(o.id)
	})
	return nil
}

func (o *wsObserver) writeLoop(initial SignalMessage) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		o.Close()
		o.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(wsWriteWait),
		)
		o.conn.Close()
	}()

	if err := o.write(initial); err != nil {
		return
	}

	for {
		select {
		case <-o.done:
			return
		case msg := <-o.queue:
			if err := o.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (o *wsObserver) write(msg SignalMessage) error {
	o.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return o.conn.WriteJSON(msg)
}

// readLoop drains the client frames. The observer goes away with the
// connection.
func (o *wsObserver) readLoop() {
	defer o.Close()

	o.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	o.conn.SetPongHandler(func(string) error {
		o.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WebSocketHandler upgrades the connection and streams the StepsUpdated
// signals, starting with a Snapshot of the current state.
func (svc *Service) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			svc.logger.Warnf("❌ Websocket upgrade failed: %v", err)
			return
		}

		svc.serveWebSocket(conn, "ws:"+uuid.New().String(), r.RemoteAddr)
	}
}

// serveWebSocket registers conn as the observer id. A connection that cannot
// be registered is closed with CloseTryAgainLater.
func (svc *Service) serveWebSocket(conn *websocket.Conn, id, remote string) bool {
	o := &wsObserver{
		id:     id,
		conn:   conn,
		volume: svc.volume,
		queue:  make(chan SignalMessage, svc.eventing.config.QueueSize),
		done:   make(chan struct{}),
	}

	if !svc.volume.Subscribe(o) {
		svc.logger.Warnf("❌ Websocket observer %s from %s cannot be registered", id, remote)
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "observer not registered"),
			time.Now().Add(wsWriteWait),
		)
		conn.Close()
		return false
	}
	snap := svc.volume.GetAll()

	svc.logger.Infof("🔌 Websocket observer %s connected from %s", id, remote)

	go o.writeLoop(SignalMessage{
		Signal:      SignalSnapshot,
		StepCount:   snap.StepCount,
		CurrentStep: snap.CurrentStep,
	})
	go o.readLoop()
	return true
}
