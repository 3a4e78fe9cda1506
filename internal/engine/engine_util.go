package engine

func NewEmptyState(rules Rules) State {
	return State{
		Phase:    "None",
		InTarget: false,
		Rules:    rules,
	}
}

func ContainsEffect(effects []Effect, effectType EffectType) bool {
	for _, effect := range effects {
		if effect.Type == effectType {
			return true
		}
	}
	return false
}

// SyncDelays lists the delays of every Sync effect, in order.
func SyncDelays(effects []Effect) []int64 {
	var out []int64
	for _, e := range effects {
		if e.Type == EffSync {
			out = append(out, e.Delay.Milliseconds())
		}
	}
	return out
}

// MarkAssetRequested records that a request for the tracked asset is in
// flight so no duplicate goes out before the host answers.
func MarkAssetRequested(s State) State {
	s.AssetPending = true
	return s
}
