// Package ws is the host simulator's end of the bridge websocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// The overlay runs inside the client's embedded browser.
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		out := make(chan types.Inbound, 16)
		clientID := uuid.NewString()
		sessLog := log.With(zap.String("session", clientID))
		sessLog.Info("overlay connected", zap.String("remote", r.RemoteAddr))

		if !post(h, hub.Join{ClientID: clientID, Outbox: out}) {
			return
		}
		defer post(h, hub.Leave{ClientID: clientID})

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer conn.CloseNow()
			for {
				select {
				case <-writeCtx.Done():
					return
				case msg, ok := <-out:
					if !ok {
						_ = conn.Close(websocket.StatusGoingAway, "host shutting down")
						return
					}
					payload, err := json.Marshal(msg)
					if err != nil {
						sessLog.Error("encode host message", zap.Error(err))
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					err = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
					if err != nil {
						return
					}
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					sessLog.Info("overlay disconnected")
				default:
					sessLog.Debug("read failed", zap.Error(err))
				}
				return
			}

			msg, err := types.DecodeOutbound(data)
			if err != nil {
				if errors.Is(err, types.ErrUnknownType) {
					sessLog.Debug("ignoring frame", zap.Error(err))
				} else {
					sessLog.Warn("bad frame", zap.Error(err))
				}
				continue
			}

			switch m := msg.(type) {
			case types.RequestLocalAsset:
				post(h, hub.SendTo{ClientID: clientID, Msg: types.LocalAssetURL{
					Type:      types.TypeLocalAssetURL,
					AssetPath: m.AssetPath,
					URL:       AssetURL(r.Host, m.AssetPath),
				}})
			case types.ChromaLog:
				logChroma(sessLog, m)
			}
		}
	}
}

// post reports false once the hub is gone.
func post(h *hub.Hub, m hub.HubMsg) bool {
	select {
	case h.Inbox() <- m:
		return true
	case <-h.Done():
		return false
	}
}

// AssetURL is where the simulator serves assetPath.
func AssetURL(host, assetPath string) string {
	return (&url.URL{Scheme: "http", Host: host, Path: "/assets/" + assetPath}).String()
}

func logChroma(log *zap.Logger, m types.ChromaLog) {
	fields := []zap.Field{
		zap.String("source", m.Source),
		zap.Time("ts", time.UnixMilli(m.Timestamp)),
	}
	if len(m.Data) > 0 {
		fields = append(fields, zap.Any("data", m.Data))
	}
	switch m.Level {
	case "debug":
		log.Debug(m.Message, fields...)
	case "warn":
		log.Warn(m.Message, fields...)
	case "error":
		log.Error(m.Message, fields...)
	default:
		log.Info(m.Message, fields...)
	}
}
