package stdlib

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"shannon/internal/context"
	"shannon/internal/interp"
	"shannon/internal/variant"
)

// wsConn is the rtobj payload net.wsDial hands back: a single live
// gorilla/websocket connection. Grounded on the teacher's
// internal/network/websocket.go WebSocketConn, trimmed of the
// background-goroutine message channel and connection registry — spec.md
// frames native I/O as blocking the caller, not the interpreter, so
// net.wsRecv reads synchronously instead of draining a channel.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) RtObjKind() string { return "wsconn" }

func asWSConn(v variant.Variant) (*wsConn, error) {
	if v.Kind() != variant.KindRtObj {
		return nil, fmt.Errorf("expected a websocket connection")
	}
	c, ok := v.Obj().(*wsConn)
	if !ok {
		return nil, fmt.Errorf("expected a websocket connection")
	}
	return c, nil
}

// wsDial connects to a WebSocket server, grounded on websocket.go's
// WebSocketConnect.
func wsDial(args []variant.Variant) (variant.Variant, error) {
	url := string(args[0].Bytes())
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return variant.Void(), fmt.Errorf("net.wsDial: %w", err)
	}
	return variant.NewRtObj(&wsConn{conn: conn}), nil
}

// wsSend sends a text message, grounded on websocket.go's WebSocketSend.
func wsSend(args []variant.Variant) (variant.Variant, error) {
	c, err := asWSConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	msg := string(args[1].Bytes())

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		return variant.Void(), fmt.Errorf("net.wsSend: %w", err)
	}
	return variant.Void(), nil
}

// wsRecv blocks for the next text message, grounded on websocket.go's
// WebSocketReceive (minus its channel/timeout plumbing: ReadMessage
// already blocks the caller's own frame, which is the behavior spec.md
// calls for).
func wsRecv(args []variant.Variant) (variant.Variant, error) {
	c, err := asWSConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return variant.Void(), fmt.Errorf("net.wsRecv: %w", err)
	}
	return variant.NewStr(data), nil
}

func wsClose(args []variant.Variant) (variant.Variant, error) {
	c, err := asWSConn(args[0])
	if err != nil {
		return variant.Void(), err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.Close(); err != nil {
		return variant.Void(), fmt.Errorf("net.wsClose: %w", err)
	}
	return variant.Void(), nil
}

// NetModule builds the `net` native module descriptor.
func NetModule() *context.Module {
	return nativeModule("net", map[string]*interp.Callable{
		"wsDial":  {Name: "net.wsDial", Native: wsDial},
		"wsSend":  {Name: "net.wsSend", Native: wsSend},
		"wsRecv":  {Name: "net.wsRecv", Native: wsRecv},
		"wsClose": {Name: "net.wsClose", Native: wsClose},
	})
}
