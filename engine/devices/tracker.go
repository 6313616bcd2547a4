package devices

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	"github.com/spaghettifunk/parallax/engine/core"
)

const (
	// MessageOrientation is followed by w, x, y, z as little endian float32.
	MessageOrientation   byte = 0x03
	orientationFrameSize      = 1 + 4*4
)

// DecodeOrientation parses an orientation frame.
func DecodeOrientation(msg []byte) (mgl32.Quat, error) {
	if len(msg) != orientationFrameSize || msg[0] != MessageOrientation {
		return mgl32.Quat{}, fmt.Errorf("tracker frame of %d bytes: %w", len(msg), core.ErrMalformedMessage)
	}
	var v [4]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(msg[1+i*4:]))
	}
	return mgl32.Quat{W: v[0], V: mgl32.Vec3{v[1], v[2], v[3]}}, nil
}

// EncodeOrientation builds the frame DecodeOrientation reads. Used by tracker clients.
func EncodeOrientation(q mgl32.Quat) []byte {
	msg := make([]byte, orientationFrameSize)
	msg[0] = MessageOrientation
	for i, f := range []float32{q.W, q.V[0], q.V[1], q.V[2]} {
		binary.LittleEndian.PutUint32(msg[1+i*4:], math.Float32bits(f))
	}
	return msg
}

/**
 * @brief A head tracker fed over websocket. Each connection is served by its own goroutine;
 * the latest orientation is kept under a mutex the render thread only ever try-locks.
 */
type Tracker struct {
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu          sync.Mutex
	orientation mgl32.Quat
	received    bool
	conns       map[*websocket.Conn]struct{}
	readers     sync.WaitGroup

	// render thread only
	last   mgl32.Quat
	lastOK bool
}

func NewTracker() *Tracker {
	return &Tracker{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 256,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		orientation: mgl32.QuatIdent(),
		conns:       make(map[*websocket.Conn]struct{}),
		last:        mgl32.QuatIdent(),
	}
}

// Handler serves the websocket endpoint on "/".
func (t *Tracker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", t.HandleWebSocket)
	return mux
}

// Start listens on addr ("host:port", port 0 picks a free one) in the background.
func (t *Tracker) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("tracker: %w", err)
	}
	t.listener = l
	t.server = &http.Server{
		Handler:     t.Handler(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := t.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.LogError("tracker: %s", err)
		}
	}()
	core.LogInfo("tracker listening on %s", l.Addr())
	return nil
}

// Addr is the address the tracker listens on, empty before Start.
func (t *Tracker) Addr() string {
	if t.listener == nil {
		return ""
	}
	return t.listener.Addr().String()
}

func (t *Tracker) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		core.LogWarn("tracker upgrade: %s", err)
		return
	}

	t.mu.Lock()
	t.conns[conn] = struct{}{}
	t.readers.Add(1)
	t.mu.Unlock()
	t.post(true)
	core.LogInfo("tracker connected from %s", r.RemoteAddr)

	go func() {
		defer t.readers.Done()
		defer func() {
			conn.Close()
			t.mu.Lock()
			delete(t.conns, conn)
			if len(t.conns) == 0 {
				t.received = false
			}
			t.mu.Unlock()
			t.post(false)
			core.LogInfo("tracker disconnected")
		}()

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			q, err := DecodeOrientation(msg)
			if err != nil {
				core.LogWarn("%s", err)
				continue
			}
			t.mu.Lock()
			t.orientation = q
			t.received = true
			t.mu.Unlock()
		}
	}()
}

func (t *Tracker) post(connected bool) {
	err := core.EventPost(core.EventContext{
		Type:   core.EVENT_CODE_TRACKER_STATE,
		Sender: t,
		Data:   connected,
	})
	if err != nil {
		core.LogWarn("tracker state dropped: %s", err)
	}
}

/**
 * @brief Returns the latest orientation; ok is false until a connected client sent one.
 * Never blocks: while a connection holds the lock the previous snapshot is returned.
 */
func (t *Tracker) Snapshot() (mgl32.Quat, bool) {
	if !t.mu.TryLock() {
		return t.last, t.lastOK
	}
	t.last, t.lastOK = t.orientation, t.received && len(t.conns) > 0
	t.mu.Unlock()
	return t.last, t.lastOK
}

/**
 * @brief Stops the listener, then closes the websocket connections the HTTP server no longer
 * tracks and waits for their readers to return or ctx to expire.
 */
func (t *Tracker) Shutdown(ctx context.Context) error {
	var err error
	if t.server != nil {
		err = t.server.Shutdown(ctx)
	}

	t.mu.Lock()
	for conn := range t.conns {
		conn.Close()
	}
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.readers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// Clients is the number of open websocket connections.
func (t *Tracker) Clients() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}
