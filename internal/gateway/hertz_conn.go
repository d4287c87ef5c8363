package gateway

import (
	"sync"
	"time"

	"github.com/hertz-contrib/websocket"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/inbox/internal/config"
)

// ClientConn is the frame transport a Client reads requests from and writes replies and pushes to
type ClientConn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// socketOptions are the per-connection limits from the websocket config
type socketOptions struct {
	maxMessageSize int64
	queueSize      int
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
}

func socketOptionsFrom(cfg config.WebSocketConfig) socketOptions {
	return socketOptions{
		maxMessageSize: cfg.MaxMessageSize,
		queueSize:      cfg.WriteChannelSize,
		writeWait:      cfg.WriteWait,
		pongWait:       cfg.PongWait,
		pingPeriod:     cfg.PingPeriod,
	}
}

// socket owns a hertz websocket. Replies and change pushes are queued and
// written by one pump goroutine; a client that lets the queue fill is cut off
// by its Client, which then resyncs on reconnect.
type socket struct {
	conn *websocket.Conn
	opts socketOptions
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func newSocket(conn *websocket.Conn, opts socketOptions) *socket {
	s := &socket{
		conn: conn,
		opts: opts,
		out:  make(chan []byte, opts.queueSize),
		done: make(chan struct{}),
	}

	conn.SetReadLimit(opts.maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(opts.pongWait))
	})

	go s.pump()
	return s
}

func (s *socket) pump() {
	ping := time.NewTicker(s.opts.pingPeriod)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.out:
			// text frames keep the JSON readable for browser clients
			if err := s.write(websocket.TextMessage, frame); err != nil {
				log.Debug("socket write failed: %v", err)
				s.Close()
				return
			}
		case <-ping.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				log.Debug("socket ping failed: %v", err)
				s.Close()
				return
			}
		case <-s.done:
			_ = s.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (s *socket) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// ReadMessage blocks for the next request frame. A silent peer times out after pongWait.
func (s *socket) ReadMessage() ([]byte, error) {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.pongWait))
	_, data, err := s.conn.ReadMessage()
	return data, err
}

// WriteMessage queues a frame without blocking
func (s *socket) WriteMessage(data []byte) error {
	select {
	case <-s.done:
		return ErrConnClosed
	default:
	}
	select {
	case s.out <- data:
		return nil
	case <-s.done:
		return ErrConnClosed
	default:
		return ErrWriteChannelFull
	}
}

// Close stops the pump, which sends a close frame and releases the connection
func (s *socket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
