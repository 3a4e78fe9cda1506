package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

// BridgePort answers the discovery probe with the bridge port as a bare
// integer.
func BridgePort(port int) http.HandlerFunc {
	body := []byte(strconv.Itoa(port))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(body)
	}
}

var flagPNG = sync.OnceValues(func() ([]byte, error) {
	const size = 24
	var (
		gold = color.RGBA{R: 0xc8, G: 0xaa, B: 0x6e, A: 0xff}
		navy = color.RGBA{R: 0x01, G: 0x0a, B: 0x13, A: 0xff}
	)
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			switch {
			case x < 2 || y < 2 || x >= size-2 || y >= size-2:
				img.Set(x, y, gold)
			case y >= 10 && y < 14:
				img.Set(x, y, gold)
			default:
				img.Set(x, y, navy)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
})

// Asset serves the flag image for any requested asset name.
func Asset(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "name") == "" {
		http.NotFound(w, r)
		return
	}
	data, err := flagPNG()
	if err != nil {
		http.Error(w, "failed to render asset", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

func SetPhase(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Phase string `json:"phase"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phase == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		h.Inbox() <- hub.SetPhase{Phase: body.Phase}
		w.WriteHeader(http.StatusAccepted)
	}
}

func SetHistoric(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st types.HistoricState
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		h.Inbox() <- hub.SetHistoric{State: st}
		w.WriteHeader(http.StatusAccepted)
	}
}

// State reports the simulator's current host state.
func State(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.View, 1)
		h.Inbox() <- hub.GetView{Reply: reply}
		v := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Phase    string               `json:"phase"`
			Historic *types.HistoricState `json:"historic,omitempty"`
			Sessions int                  `json:"sessions"`
		}{Phase: v.Phase, Historic: v.Historic, Sessions: v.NumClients})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
