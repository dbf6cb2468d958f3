package ws

import (
	"testing"
)

func TestSendToClientNotFound(t *testing.T) {
	h := testHub(DefaultConfig())

	if status := h.SendToClient("999", "hi"); status != StatusNotFound {
		t.Errorf("SendToClient(absent) = %q, want %q", status, StatusNotFound)
	}
}

func TestDisconnectNotFound(t *testing.T) {
	h := testHub(DefaultConfig())

	if h.Disconnect("999", "gone") {
		t.Error("Disconnect(absent) = true, want false")
	}
}

func TestSendToGroupEmpty(t *testing.T) {
	h := testHub(DefaultConfig())

	if n := h.SendToGroup("nobody", "hi"); n != 0 {
		t.Errorf("SendToGroup(empty) = %d, want 0", n)
	}
}

func TestClientsEmpty(t *testing.T) {
	h := testHub(DefaultConfig())

	if clients := h.Clients(); len(clients) != 0 {
		t.Errorf("Clients() = %d entries, want 0", len(clients))
	}
	if h.Count() != 0 {
		t.Errorf("Count() = %d, want 0", h.Count())
	}
}

func TestValidID(t *testing.T) {
	h := testHub(DefaultConfig())

	tests := []struct {
		id   string
		want bool
	}{
		{"123", true},
		{"0", true},
		{"abc", false},
		{"12a", false},
		{"", false},
		{"-1", false},
	}
	for _, tt := range tests {
		if got := h.ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
