package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"scholarhub/infrastructure/ws"
)

// ControlHandler exposes the hub's synchronous control operations to
// operators: listing clients, injecting messages and evicting clients.
type ControlHandler struct {
	hub *ws.Hub
	log *slog.Logger
}

// NewControlHandler creates the control surface over the given hub.
func NewControlHandler(hub *ws.Hub, logger *slog.Logger) *ControlHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlHandler{hub: hub, log: logger}
}

type messageRequest struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeMessage(w http.ResponseWriter, r *http.Request) (messageRequest, bool) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return messageRequest{}, false
	}
	return req, true
}

// ListClients handles GET /ws/clients.
func (h *ControlHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients := h.hub.Clients()
	writeJSON(w, http.StatusOK, struct {
		Count   int             `json:"count"`
		Clients []ws.ClientInfo `json:"clients"`
	}{
		Count:   len(clients),
		Clients: clients,
	})
}

// SendTo handles POST /ws/send_to/{clientId}.
func (h *ControlHandler) SendTo(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	status := h.hub.SendToClient(clientID, req.Message)
	h.log.Info("control send_to", "clientId", clientID, "status", status)
	writeJSON(w, http.StatusOK, statusResponse{Status: string(status)})
}

// SendToGroup handles POST /ws/send_to_group/{group}.
func (h *ControlHandler) SendToGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	req, ok := decodeMessage(w, r)
	if !ok {
		return
	}

	delivered := h.hub.SendToGroup(group, req.Message)
	h.log.Info("control send_to_group", "group", group, "delivered", delivered)
	writeJSON(w, http.StatusOK, struct {
		Delivered int `json:"delivered"`
	}{Delivered: delivered})
}

// Disconnect handles POST /ws/disconnect/{clientId}.
func (h *ControlHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")

	var req struct {
		Reason string `json:"reason"`
	}
	// The body is optional; a missing reason evicts silently.
	_ = json.NewDecoder(r.Body).Decode(&req)

	if !h.hub.Disconnect(clientID, req.Reason) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "not_found"})
		return
	}
	h.log.Info("control disconnect", "clientId", clientID, "reason", req.Reason)
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Health handles GET /health.
func (h *ControlHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}{Status: "ok", Clients: h.hub.Count()})
}
