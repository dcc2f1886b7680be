package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestDecodeSessionEvent(t *testing.T) {
	body, _ := json.Marshal(SessionEvent{Type: EventSessionUpdated, SessionID: "s-1", At: time.Now()})
	ev, err := DecodeSessionEvent(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.SessionID != "s-1" {
		t.Fatalf("session id = %q", ev.SessionID)
	}

	for _, bad := range []string{`{`, `{"type":"job","session_id":"x"}`, `{"type":"session.updated"}`} {
		if _, err := DecodeSessionEvent([]byte(bad)); err == nil {
			t.Errorf("DecodeSessionEvent(%s) accepted", bad)
		}
	}
}

func TestAttempts(t *testing.T) {
	cases := []struct {
		h    amqp.Table
		want int
	}{
		{nil, 0},
		{amqp.Table{AttemptsHeader: int32(2)}, 2},
		{amqp.Table{AttemptsHeader: int64(3)}, 3},
		{amqp.Table{AttemptsHeader: "x"}, 0},
	}
	for _, c := range cases {
		if got := Attempts(c.h); got != c.want {
			t.Errorf("Attempts(%v) = %d, want %d", c.h, got, c.want)
		}
	}
	if RetryQueue("q") != "q.retry" || DeadLetterQueue("q") != "q.dlq" {
		t.Fatalf("queue names")
	}
}
