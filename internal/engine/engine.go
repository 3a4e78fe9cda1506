package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/DoyleJ11/historic-flag-overlay/pkg/types"
)

var ErrUnsupportedMessage = errors.New("unsupported message")
var ErrForeignAsset = errors.New("asset not tracked")

// State is everything the synchronizer knows about the client and the host.
// It only changes through Apply and MarkAssetRequested.
type State struct {
	Phase    string
	InTarget bool

	Active   bool
	SkinID   json.RawMessage
	SkinName string

	AssetURL     string
	AssetPending bool

	Rules Rules
}

type Rules struct {
	AssetPath       string
	PhaseEnterDelay time.Duration
	HistoricDelays  []time.Duration
}

type EffectType string

const (
	EffSync        EffectType = "Sync"
	EffClear       EffectType = "ClearDecoration"
	EffShowLabel   EffectType = "ShowLabel"
	EffRemoveLabel EffectType = "RemoveLabel"
)

/*
	phase-change    -> ClearDecoration            (leaving the target phases)
	                -> Sync(PhaseEnterDelay)      (in target and active)
	historic-state  -> ShowLabel | RemoveLabel    (always, from the name)
	                -> Sync(d) for each HistoricDelays entry while active,
	                   Sync(0) once while inactive so a shown flag is cleared
	local-asset-url -> Sync(0)                    (tracked asset, in target and active)
*/

type Effect struct {
	Type  EffectType
	Delay time.Duration
	Text  string
}

func Apply(s State, msg types.Inbound) ([]Effect, State, error) {
	newState := s

	switch m := msg.(type) {
	case types.PhaseChange:
		newState.Phase = m.Phase
		newState.InTarget = InTargetPhase(m.Phase)

		if s.InTarget && !newState.InTarget {
			return []Effect{{Type: EffClear}}, newState, nil
		}
		if newState.InTarget && newState.Active {
			return []Effect{{Type: EffSync, Delay: s.Rules.PhaseEnterDelay}}, newState, nil
		}
		return nil, newState, nil

	case types.HistoricState:
		// Each update replaces the previous one in full.
		newState.Active = m.Active
		newState.SkinID = m.HistoricSkinID
		newState.SkinName = normalizeName(m.SkinName())

		var effects []Effect
		if newState.SkinName != "" {
			effects = append(effects, Effect{Type: EffShowLabel, Text: newState.SkinName})
		} else {
			effects = append(effects, Effect{Type: EffRemoveLabel})
		}

		if !newState.Active {
			return append(effects, Effect{Type: EffSync}), newState, nil
		}
		for _, d := range s.Rules.HistoricDelays {
			effects = append(effects, Effect{Type: EffSync, Delay: d})
		}
		return effects, newState, nil

	case types.LocalAssetURL:
		if m.AssetPath != s.Rules.AssetPath {
			return nil, s, ErrForeignAsset
		}
		newState.AssetURL = m.URL
		newState.AssetPending = false
		if newState.InTarget && newState.Active {
			return []Effect{{Type: EffSync}}, newState, nil
		}
		return nil, newState, nil

	default:
		return nil, s, ErrUnsupportedMessage
	}
}

// normalizeName maps the host's "no name" spellings to "".
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	switch name {
	case "None", "null", "undefined":
		return ""
	}
	return name
}

// NeedsAsset reports whether an asset request should go out now.
func NeedsAsset(s State) bool {
	return s.Active && s.AssetURL == "" && !s.AssetPending
}
