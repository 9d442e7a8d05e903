package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/frvtface/internal/config"
)

func TestApplyFlagsOnlyChanged(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("flip-threshold", "12"))
	require.NoError(t, flags.Set("skip-flip-check", "false"))

	base := config.Default()
	base.ConfigDir = "/from/env"

	got := applyFlags(flags, base)
	assert.Equal(t, 12.0, got.FlipThreshold)
	assert.False(t, got.SkipFlipCheck)
	// not set on the command line: keeps the loaded value
	assert.Equal(t, "/from/env", got.ConfigDir)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug"))
	assert.Error(t, setupLogging("loud"))
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"evaluate", "enroll", "match", "landmarks", "templates"} {
		assert.True(t, names[want], want)
	}
}
