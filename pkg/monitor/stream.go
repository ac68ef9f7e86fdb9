// Package monitor streams decoded topic traffic to websocket clients.
package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/rubi.go/pkg/framework"
)

// DefaultBacklog is the number of lines queued per client.
const DefaultBacklog = 64

// Stream fans lines out to connected websocket clients. A client
// that can't keep up misses lines instead of blocking Publish.
type Stream struct {
	Backlog int

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn  *websocket.Conn
	lines chan string
}

// NewStream creates an empty Stream.
func NewStream() *Stream {
	return &Stream{Backlog: DefaultBacklog, clients: make(map[*client]struct{})}
}

// Publish sends a line to all clients.
func (s *Stream) Publish(line string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	for c := range s.clients {
		select {
		case c.lines <- line:
		default:
			glog.V(2).Info("monitor: client is behind, line dropped")
		}
	}
}

// Clients returns the number of connected clients.
func (s *Stream) Clients() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.clients)
}

// Handler serves a websocket client until it disconnects.
func (s *Stream) Handler() websocket.Handler {
	return websocket.Handler(s.serve)
}

func (s *Stream) serve(conn *websocket.Conn) {
	backlog := s.Backlog
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	c := &client{conn: conn, lines: make(chan string, backlog)}
	s.lock.Lock()
	s.clients[c] = struct{}{}
	s.lock.Unlock()
	defer func() {
		s.lock.Lock()
		delete(s.clients, c)
		s.lock.Unlock()
	}()

	// clients never send, a read only detects the close
	closed := make(chan struct{})
	go func() {
		var discard []byte
		for websocket.Message.Receive(conn, &discard) == nil {
		}
		close(closed)
	}()
	for {
		select {
		case <-closed:
			return
		case line := <-c.lines:
			if err := websocket.Message.Send(conn, line); err != nil {
				return
			}
		}
	}
}

// Serve listens on addr and serves the stream at path until ctx is done.
func (s *Stream) Serve(ctx context.Context, addr, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	err := fx.RunWithContextCloser(ctx, server, server.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
