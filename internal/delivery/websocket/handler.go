package websocket

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"scholarhub/infrastructure/ws"
	"scholarhub/internal/ratelimit"
)

// Handler upgrades HTTP requests on the hub endpoints and hands the
// resulting connections to the hub.
type Handler struct {
	hub      *ws.Hub
	limiter  ratelimit.Limiter
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the WebSocket handler. allowedOrigins feeds the
// upgrader's origin check; an empty list or "*" admits every origin.
func NewHandler(hub *ws.Hub, limiter ratelimit.Limiter, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	h := &Handler{
		hub:     hub,
		limiter: limiter,
		log:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newOriginChecker(allowedOrigins, logger),
	}
	return h
}

// HandleAnonymous serves GET <prefix>/ws. The hub synthesizes a client id.
func (h *Handler) HandleAnonymous(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "", "")
}

// HandleClient serves GET <prefix>/ws/{clientId}.
func (h *Handler) HandleClient(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "clientId"), "")
}

// HandleClientGroup serves GET <prefix>/ws/{clientId}/{group}.
func (h *Handler) HandleClientGroup(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, chi.URLParam(r, "clientId"), chi.URLParam(r, "group"))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, clientID, group string) {
	ip := clientIP(r)
	if !h.limiter.Allow(r.Context(), ip) {
		h.log.Warn("connection attempt rate limited", "remoteAddr", ip)
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.log.Warn("websocket upgrade failed", "remoteAddr", ip, "err", err)
		return
	}

	h.hub.ServeConn(conn, clientID, group, ip)
}

// clientIP resolves the originating address, honoring the first entry of
// X-Forwarded-For when the hub sits behind a proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
