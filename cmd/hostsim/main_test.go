package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/historic-flag-overlay/internal/hub"
)

func TestParseCommand(t *testing.T) {
	msg, err := parseCommand("phase ChampSelect")
	require.NoError(t, err)
	assert.Equal(t, hub.SetPhase{Phase: "ChampSelect"}, msg)

	msg, err = parseCommand("historic on 42 Classic 2009")
	require.NoError(t, err)
	st := msg.(hub.SetHistoric).State
	assert.True(t, st.Active)
	assert.Equal(t, "42", string(st.HistoricSkinID))
	assert.Equal(t, "Classic 2009", st.SkinName())

	msg, err = parseCommand("historic on skin-7")
	require.NoError(t, err)
	st = msg.(hub.SetHistoric).State
	assert.Equal(t, `"skin-7"`, string(st.HistoricSkinID))
	assert.Nil(t, st.HistoricSkinName)

	msg, err = parseCommand("historic off")
	require.NoError(t, err)
	assert.False(t, msg.(hub.SetHistoric).State.Active)

	msg, err = parseCommand("   ")
	require.NoError(t, err)
	assert.Nil(t, msg)

	for _, bad := range []string{"phase", "historic", "historic maybe", "hover 1"} {
		_, err := parseCommand(bad)
		assert.Error(t, err, bad)
	}
}
