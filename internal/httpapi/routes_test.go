package httpapi

import (
	"context"
	"encoding/json"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/bridge"
	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
	"github.com/DoyleJ11/historic-flag-overlay/internal/discovery"
	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

type simulator struct {
	srv  *httptest.Server
	port int
}

func startSimulator(t *testing.T) *simulator {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port

	srv := httptest.NewUnstartedServer(SetupRoutes(hub.NewHub(ctx), port, zap.NewNop()))
	srv.Listener.Close()
	srv.Listener = ln
	srv.Start()
	t.Cleanup(srv.Close)
	return &simulator{srv: srv, port: port}
}

func (s *simulator) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *simulator) post(t *testing.T, path, body string) {
	t.Helper()
	resp, err := http.Post(s.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

// sessions is safe to call from require.Eventually.
func (s *simulator) sessions() int {
	resp, err := http.Get(s.srv.URL + "/state")
	if err != nil {
		return -1
	}
	defer resp.Body.Close()
	var st struct {
		Sessions int `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return -1
	}
	return st.Sessions
}

func TestDiscoveryEndpoints(t *testing.T) {
	sim := startSimulator(t)
	for _, path := range []string{"/bridge-port", "/port"} {
		body, err := io.ReadAll(sim.get(t, path).Body)
		require.NoError(t, err)
		assert.Equal(t, strconv.Itoa(sim.port), string(body), path)
	}
}

func TestAsset_ServesPNG(t *testing.T) {
	sim := startSimulator(t)
	resp := sim.get(t, "/assets/historic_flag.png")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())
}

func TestSetPhase_RejectsBadJSON(t *testing.T) {
	sim := startSimulator(t)
	resp, err := http.Post(sim.srv.URL+"/phase", "application/json", strings.NewReader(`{"phase":`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The overlay's resolver and bridge client talk to the simulator exactly as
// they would to the real host.
func TestOverlayRoundTrip(t *testing.T) {
	sim := startSimulator(t)

	disc := config.Default().Discovery
	disc.Host = "127.0.0.1"
	disc.DefaultPort = sim.port
	disc.SweepLow, disc.SweepHigh = sim.port, sim.port
	resolver := discovery.NewResolver(disc, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan types.Inbound, 8)
	client := bridge.NewClient(resolver, config.Default().Bridge, zap.NewNop())
	client.OnMessage(func(m types.Inbound) { got <- m })
	client.Start(ctx)
	defer client.Close()

	require.Eventually(t, func() bool { return sim.sessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	sim.post(t, "/phase", `{"phase":"ChampSelect"}`)
	sim.post(t, "/historic", `{"active":true,"historicSkinId":42,"historicSkinName":"Classic 2009"}`)

	pc := recvInbound(t, got).(types.PhaseChange)
	assert.Equal(t, "ChampSelect", pc.Phase)
	hs := recvInbound(t, got).(types.HistoricState)
	assert.True(t, hs.Active)
	assert.Equal(t, "42", string(hs.HistoricSkinID))
	assert.Equal(t, "Classic 2009", hs.SkinName())

	require.NoError(t, client.Send(types.NewRequestLocalAsset("historic_flag.png", time.Now())))
	u := recvInbound(t, got).(types.LocalAssetURL)
	assert.Equal(t, "historic_flag.png", u.AssetPath)
	assert.Equal(t, "http://127.0.0.1:"+strconv.Itoa(sim.port)+"/assets/historic_flag.png", u.URL)

	resp, err := http.Get(u.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func recvInbound(t *testing.T, ch <-chan types.Inbound) types.Inbound {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for host message")
		return nil
	}
}
