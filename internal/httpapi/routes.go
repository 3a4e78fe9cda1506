package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
	"github.com/DoyleJ11/historic-flag-overlay/internal/ws"
)

// SetupRoutes builds the simulator router. port is what the discovery
// endpoints report.
func SetupRoutes(h *hub.Hub, port int, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Discovery, current and legacy
	r.Get("/bridge-port", BridgePort(port))
	r.Get("/port", BridgePort(port))

	r.Get("/assets/{name}", Asset)
	r.Get("/healthz", Healthz)

	// Scripting
	r.Get("/state", State(h))
	r.Post("/phase", SetPhase(h))
	r.Post("/historic", SetHistoric(h))

	r.Get("/", ws.Handler(h, log.Named("ws")))
	return r
}
