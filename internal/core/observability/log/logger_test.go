package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"off", LevelSilent},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	l, err := NewFromConfig(Config{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l.GetLevel())

	child := l.With(String("component", "test"))
	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, child.GetLevel())

	_, err = NewFromConfig(Config{Level: "nope"})
	assert.Error(t, err)

	_, err = NewFromConfig(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.Equal(t, LevelSilent, l.GetLevel())
	assert.NotPanics(t, func() {
		l.Info("ignored", Int("n", 1), Error(errors.New("x")), Any("v", []int{1}))
		l.With(Bool("b", true)).Warn("ignored")
	})
}
