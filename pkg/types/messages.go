package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Host -> Overlay
// historic-state:
//   active: boolean
//   historicSkinId: any (opaque)
//   historicSkinName: string | null
//
// phase-change:
//   phase: string // "ChampSelect" | "FINALIZATION" | anything else
//
// local-asset-url:
//   assetPath: string
//   url: string
//
// Overlay -> Host
// chroma-log:
//   source: string
//   level: "debug" | "info" | "warn" | "error"
//   message: string
//   timestamp: number // unix ms
//   data: object // optional
//
// request-local-asset:
//   assetPath: string
//   timestamp: number // unix ms

const (
	TypeHistoricState     = "historic-state"
	TypePhaseChange       = "phase-change"
	TypeLocalAssetURL     = "local-asset-url"
	TypeChromaLog         = "chroma-log"
	TypeRequestLocalAsset = "request-local-asset"
)

var ErrMalformed = errors.New("malformed message")
var ErrUnknownType = errors.New("unknown message type")

// Inbound is a message pushed by the host.
type Inbound interface{ isInbound() }

type HistoricState struct {
	Type             string          `json:"type"`
	Active           bool            `json:"active"`
	HistoricSkinID   json.RawMessage `json:"historicSkinId,omitempty"`
	HistoricSkinName *string         `json:"historicSkinName,omitempty"`
}

func (HistoricState) isInbound() {}

// SkinName returns the display name, or "" when the host sent none.
func (m HistoricState) SkinName() string {
	if m.HistoricSkinName == nil {
		return ""
	}
	return *m.HistoricSkinName
}

type PhaseChange struct {
	Type  string `json:"type"`
	Phase string `json:"phase"`
}

func (PhaseChange) isInbound() {}

type LocalAssetURL struct {
	Type      string `json:"type"`
	AssetPath string `json:"assetPath"`
	URL       string `json:"url"`
}

func (LocalAssetURL) isInbound() {}

// Outbound is a message sent by the overlay.
type Outbound interface{ isOutbound() }

type ChromaLog struct {
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

func (ChromaLog) isOutbound() {}

type RequestLocalAsset struct {
	Type      string `json:"type"`
	AssetPath string `json:"assetPath"`
	Timestamp int64  `json:"timestamp"`
}

func (RequestLocalAsset) isOutbound() {}

func NewRequestLocalAsset(assetPath string, now time.Time) RequestLocalAsset {
	return RequestLocalAsset{Type: TypeRequestLocalAsset, AssetPath: assetPath, Timestamp: now.UnixMilli()}
}

// DecodeInbound parses one bridge frame. Frames that are not JSON objects
// wrap ErrMalformed; well-formed frames with an unhandled type wrap
// ErrUnknownType.
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var (
		msg Inbound
		err error
	)
	switch head.Type {
	case TypeHistoricState:
		var m HistoricState
		err = json.Unmarshal(data, &m)
		if bytes.Equal(m.HistoricSkinID, []byte("null")) {
			m.HistoricSkinID = nil
		}
		msg = m
	case TypePhaseChange:
		var m PhaseChange
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeLocalAssetURL:
		var m LocalAssetURL
		err = json.Unmarshal(data, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, head.Type, err)
	}
	return msg, nil
}

// DecodeOutbound is the host-side counterpart of DecodeInbound.
func DecodeOutbound(data []byte) (Outbound, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var (
		msg Outbound
		err error
	)
	switch head.Type {
	case TypeChromaLog:
		var m ChromaLog
		err = json.Unmarshal(data, &m)
		msg = m
	case TypeRequestLocalAsset:
		var m RequestLocalAsset
		err = json.Unmarshal(data, &m)
		msg = m
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, head.Type, err)
	}
	return msg, nil
}
