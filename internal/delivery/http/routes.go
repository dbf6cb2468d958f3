package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	wsDelivery "scholarhub/internal/delivery/websocket"
)

// MapRoutes wires the WebSocket endpoints and the operator control
// surface onto the router. prefix scopes the client-facing WebSocket
// paths (e.g. "/api"); the control endpoints live at the root per the
// contract with the surrounding API layer.
func MapRoutes(r *chi.Mux, control *ControlHandler, wsHandler *wsDelivery.Handler, guard *ControlGuard, prefix string) {
	r.Get("/health", http.HandlerFunc(control.Health))

	r.Route(prefix+"/ws", func(r chi.Router) {
		r.Get("/", http.HandlerFunc(wsHandler.HandleAnonymous))
		r.Get("/{clientId}", http.HandlerFunc(wsHandler.HandleClient))
		r.Get("/{clientId}/{group}", http.HandlerFunc(wsHandler.HandleClientGroup))
	})

	r.Route("/ws", func(r chi.Router) {
		r.Use(guard.Authenticate)
		r.Get("/clients", http.HandlerFunc(control.ListClients))
		r.Post("/send_to/{clientId}", http.HandlerFunc(control.SendTo))
		r.Post("/send_to_group/{group}", http.HandlerFunc(control.SendToGroup))
		r.Post("/disconnect/{clientId}", http.HandlerFunc(control.Disconnect))
	})
}
