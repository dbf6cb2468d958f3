package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	gws "github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"scholarhub/infrastructure/ws"
	httpDelivery "scholarhub/internal/delivery/http"
	wsDelivery "scholarhub/internal/delivery/websocket"
	"scholarhub/pkg/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, guard *httpDelivery.ControlGuard) (*httptest.Server, *ws.Hub) {
	t.Helper()
	logger := discardLogger()
	hub := ws.New(ws.DefaultConfig(), logger)

	if guard == nil {
		guard = httpDelivery.NewControlGuard(nil, "", logger)
	}
	router := chi.NewRouter()
	wsHandler := wsDelivery.NewHandler(hub, nil, nil, logger)
	control := httpDelivery.NewControlHandler(hub, logger)
	httpDelivery.MapRoutes(router, control, wsHandler, guard, "/api")

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, hub
}

func connectClient(t *testing.T, server *httptest.Server, path string) *gws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	// Consume the welcome frame so later reads see only test traffic.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	return conn
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestListClientsEmpty(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/ws/clients")
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if count, _ := body["count"].(float64); count != 0 {
		t.Errorf("count = %v, want 0", body["count"])
	}
}

func TestListClientsReflectsConnections(t *testing.T) {
	server, _ := newTestServer(t, nil)

	connectClient(t, server, "/api/ws/101")
	connectClient(t, server, "/api/ws/102/researchers")

	resp, err := http.Get(server.URL + "/ws/clients")
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp.Body.Close()

	body := decodeBody(t, resp)
	if count, _ := body["count"].(float64); count != 2 {
		t.Fatalf("count = %v, want 2", body["count"])
	}

	clients, _ := body["clients"].([]any)
	groups := map[string]string{}
	for _, raw := range clients {
		entry, _ := raw.(map[string]any)
		id, _ := entry["clientId"].(string)
		group, _ := entry["group"].(string)
		groups[id] = group
		if ts, _ := entry["connectedAt"].(string); ts == "" {
			t.Errorf("client %s missing connectedAt", id)
		}
	}
	if groups["101"] != "" || groups["102"] != "researchers" {
		t.Errorf("client groups = %v, want 101 ungrouped and 102 in researchers", groups)
	}
}

func TestSendToNotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/ws/send_to/999", map[string]string{"message": "hi"})
	body := decodeBody(t, resp)
	if body["status"] != "not_found" {
		t.Errorf("status = %v, want not_found", body["status"])
	}
}

func TestSendToDelivered(t *testing.T) {
	server, _ := newTestServer(t, nil)

	conn := connectClient(t, server, "/api/ws/101")

	resp := postJSON(t, server.URL+"/ws/send_to/101", map[string]string{"message": "hi"})
	body := decodeBody(t, resp)
	if body["status"] != "delivered" {
		t.Fatalf("status = %v, want delivered", body["status"])
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read injected message: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(payload, &frame); err != nil {
		t.Fatalf("decode %q: %v", payload, err)
	}
	if frame["from"] != "server" || frame["body"] != "hi" {
		t.Errorf("frame = %v, want from=server body=hi", frame)
	}
}

func TestSendToGroupCountsTargets(t *testing.T) {
	server, _ := newTestServer(t, nil)

	connectClient(t, server, "/api/ws/1/A")
	connectClient(t, server, "/api/ws/2/A")
	connectClient(t, server, "/api/ws/3/B")

	resp := postJSON(t, server.URL+"/ws/send_to_group/A", map[string]string{"message": "deadline moved"})
	body := decodeBody(t, resp)
	if delivered, _ := body["delivered"].(float64); delivered != 2 {
		t.Errorf("delivered = %v, want 2", body["delivered"])
	}
}

func TestDisconnectEvictsClient(t *testing.T) {
	server, hub := newTestServer(t, nil)

	conn := connectClient(t, server, "/api/ws/7")

	resp := postJSON(t, server.URL+"/ws/disconnect/7", map[string]string{"reason": "maintenance"})
	body := decodeBody(t, resp)
	if body["status"] != "ok" {
		t.Fatalf("status = %v, want ok", body["status"])
	}
	if hub.Count() != 0 {
		t.Errorf("hub.Count() = %d after disconnect, want 0", hub.Count())
	}

	// Evicting again reports not_found: disconnect is not retried.
	resp = postJSON(t, server.URL+"/ws/disconnect/7", nil)
	body = decodeBody(t, resp)
	if body["status"] != "not_found" {
		t.Errorf("second disconnect status = %v, want not_found", body["status"])
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !gws.IsCloseError(err, gws.CloseNormalClosure) {
		t.Errorf("evicted client read error = %v, want close 1000", err)
	}
}

func TestGuardRejectsWithoutCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	guard := httpDelivery.NewControlGuard(nil, string(hash), discardLogger())
	server, _ := newTestServer(t, guard)

	resp, err := http.Get(server.URL + "/ws/clients")
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGuardAcceptsAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("operator-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	guard := httpDelivery.NewControlGuard(nil, string(hash), discardLogger())
	server, _ := newTestServer(t, guard)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/ws/clients", nil)
	req.Header.Set("X-Api-Key", "operator-key")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	req.Header.Set("X-Api-Key", "wrong-key")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Errorf("status with wrong key = %d, want 401", resp2.StatusCode)
	}
}

func TestGuardAcceptsBearerToken(t *testing.T) {
	const secret = "control-secret"
	guard := httpDelivery.NewControlGuard(token.NewManager(secret), "", discardLogger())
	server, _ := newTestServer(t, guard)

	claims := token.Claims{
		Operator: "ops",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/ws/clients", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /ws/clients: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
