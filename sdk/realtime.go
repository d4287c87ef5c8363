package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/mbeoliero/inbox/pkg/chatsync"
	"github.com/mbeoliero/kit/log"
)

// ErrUnauthorized is returned by Realtime.Run when the server refuses the token
var ErrUnauthorized = errors.New("realtime: unauthorized")

// RealtimeConfig configures the realtime transport
type RealtimeConfig struct {
	Token string
	// MaxReconnectAttempts of zero reconnects forever
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	PongWait             time.Duration
	Dialer               *websocket.Dialer
}

func (c *RealtimeConfig) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.PongWait == 0 {
		c.PongWait = DefaultPongWait
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
}

// pushFrame is the subset of the server frame the transport reads
type pushFrame struct {
	ReqIdentifier int32           `json:"req_identifier"`
	ErrCode       int             `json:"err_code"`
	ErrMsg        string          `json:"err_msg,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// Realtime is a chatsync.Transport over the /ws endpoint. It reconnects with
// exponential backoff and reports every (re)connect to the sink.
type Realtime struct {
	wsURL  string
	config RealtimeConfig
}

var _ chatsync.Transport = (*Realtime)(nil)

// NewRealtime creates a transport for baseURL (http or https)
func NewRealtime(baseURL string, config RealtimeConfig) *Realtime {
	config.defaults()
	wsURL := strings.Replace(baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return &Realtime{wsURL: strings.TrimRight(wsURL, "/") + "/ws", config: config}
}

// Run connects and delivers pushed changes to sink until ctx is done, the
// token is refused or the reconnect attempts run out.
func (r *Realtime) Run(ctx context.Context, sink chatsync.TransportSink) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.ReconnectBaseDelay
	b.MaxInterval = r.config.ReconnectMaxDelay
	b.MaxElapsedTime = 0
	var policy backoff.BackOff = b
	if r.config.MaxReconnectAttempts > 0 {
		policy = backoff.WithMaxRetries(b, uint64(r.config.MaxReconnectAttempts))
	}
	policy = backoff.WithContext(policy, ctx)

	for {
		connected, err := r.session(ctx, sink)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		if connected {
			policy.Reset()
		}

		delay := policy.NextBackOff()
		if delay == backoff.Stop {
			return fmt.Errorf("realtime: giving up: %w", err)
		}
		log.CtxWarn(ctx, "realtime disconnected, reconnect in %s: error=%v", delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// session runs one connection. connected reports whether the handshake succeeded.
func (r *Realtime) session(ctx context.Context, sink chatsync.TransportSink) (connected bool, err error) {
	q := url.Values{}
	q.Set("token", r.config.Token)
	q.Set("sdk_type", sdkTypeGo)

	conn, resp, err := r.config.Dialer.DialContext(ctx, r.wsURL+"?"+q.Encode(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return false, ErrUnauthorized
		}
		return false, fmt.Errorf("websocket dial: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
			_ = conn.Close()
		}
	}()

	// the server pings, any frame proves the link is alive
	_ = conn.SetReadDeadline(time.Now().Add(r.config.PongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(r.config.PongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	sink.OnConnected()
	err = r.readLoop(ctx, conn, sink)
	sink.OnDisconnected(err)
	return true, err
}

func (r *Realtime) readLoop(ctx context.Context, conn *websocket.Conn, sink chatsync.TransportSink) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(r.config.PongWait))

		var frame pushFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.CtxWarn(ctx, "realtime frame dropped: error=%v", err)
			continue
		}
		if frame.ReqIdentifier != WSPushChange {
			if frame.ErrCode != 0 {
				log.CtxWarn(ctx, "realtime error frame: code=%d, msg=%s", frame.ErrCode, frame.ErrMsg)
			}
			continue
		}

		var change chatsync.RawChange
		if err := json.Unmarshal(frame.Data, &change); err != nil {
			log.CtxWarn(ctx, "realtime change dropped: error=%v", err)
			continue
		}
		sink.OnChange(change)
	}
}
