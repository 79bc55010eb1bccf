package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margauxdb/margaux/pkg/types"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"off", LevelOff},
		{"none", LevelOff},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}

	_, err := ParseLevel("verbose")
	assert.Equal(t, types.InvalidValue, types.KindOf(err))
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "off", LevelOff.String())
}

func TestNew_OffIsNop(t *testing.T) {
	log := New(LevelOff)
	require.NotNil(t, log)
	log.Infow("dropped")
}

func TestNew_LevelsBuild(t *testing.T) {
	for _, l := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		require.NotNil(t, New(l), l.String())
	}
}
