package redisstore

import (
	"context"
	"testing"
)

func TestSetTokenZeroTTLIsNoop(t *testing.T) {
	// no server is listening; a zero ttl must not reach the network
	s := New("127.0.0.1:1", "", 0)
	defer s.Close()
	if err := s.SetToken(context.Background(), "jti", "luna", 0); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if got := tokenKey("abc"); got != "token:abc" {
		t.Fatalf("tokenKey = %q", got)
	}
}
