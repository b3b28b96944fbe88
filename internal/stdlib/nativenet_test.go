package stdlib

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"shannon/internal/variant"
)

// echoServer answers every text message with the same text, upper-cased —
// just enough of a fixture to exercise wsSend/wsRecv round-trip without a
// real network peer.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(typ, []byte(strings.ToUpper(string(data)))); err != nil {
				return
			}
		}
	}))
	return srv
}

func TestWSDialSendRecvClose(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, err := wsDial([]variant.Variant{variant.NewStr([]byte(url))})
	if err != nil {
		t.Fatalf("wsDial: %v", err)
	}

	if _, err := wsSend([]variant.Variant{conn, variant.NewStr([]byte("hello"))}); err != nil {
		t.Fatalf("wsSend: %v", err)
	}

	reply, err := wsRecv([]variant.Variant{conn})
	if err != nil {
		t.Fatalf("wsRecv: %v", err)
	}
	if string(reply.Bytes()) != "HELLO" {
		t.Fatalf("wsRecv: expected HELLO, got %q", reply.Bytes())
	}

	if _, err := wsClose([]variant.Variant{conn}); err != nil {
		t.Fatalf("wsClose: %v", err)
	}
}

func TestWSDialBadURL(t *testing.T) {
	_, err := wsDial([]variant.Variant{variant.NewStr([]byte("not-a-url"))})
	if err == nil {
		t.Fatalf("wsDial: expected an error for a malformed URL")
	}
}

func TestAsWSConnRejectsNonConnValue(t *testing.T) {
	if _, err := asWSConn(variant.NewBool(true)); err == nil {
		t.Fatalf("asWSConn: expected an error for a non-connection value")
	}
}
