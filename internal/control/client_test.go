package control

import (
	"path/filepath"
	"testing"

	"github.com/msto63/speakd/internal/log"
)

func TestClientSendRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speakd-client-test.sock")
	s := NewServer(path, func(cmd string) string {
		return "echo: " + cmd
	}, log.New())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	response, err := NewClient(path).Send("status")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if response != "echo: status" {
		t.Errorf("response = %q, want %q", response, "echo: status")
	}
}

func TestClientSendErrorsWhenNoServerListening(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-socket.sock")
	_, err := NewClient(path).Send("status")
	if err == nil {
		t.Fatal("expected an error dialing a socket nothing is listening on")
	}
}
