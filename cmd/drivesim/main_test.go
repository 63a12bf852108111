package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := makeApp()
	app.Writer = &out
	err := app.Run(append([]string{"drivesim", "--log-level", "silent"}, args...))
	return out.String(), err
}

func TestParseLayout(t *testing.T) {
	layout, err := parseLayout("5, 6,4")
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6, 4}, layout)

	_, err = parseLayout("5,x,4")
	assert.Error(t, err)
}

func TestBrainNewAndInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pilot.json")

	out, err := runApp(t, "brain", "new", "--layout", "5,8,4", "--seed", "3", "--out", path)
	require.NoError(t, err)
	assert.Contains(t, out, "layout=[5 8 4]")
	assert.FileExists(t, path)

	out, err = runApp(t, "brain", "inspect", path)
	require.NoError(t, err)
	assert.Contains(t, out, "layout:      [5 8 4]")
	assert.Contains(t, out, "level 1:     8 -> 4")

	_, err = runApp(t, "brain", "inspect")
	assert.Error(t, err)
	_, err = runApp(t, "brain", "new", "--layout", "5", "--out", path)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sim.yaml")
	doc := fmt.Sprintf("log:\n  level: silent\nsimulation:\n  seed: 1\nstorage:\n  dir: %s\n", dir)
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o644))

	out, err := runApp(t, "run", "--config", cfgPath, "--ticks", "20", "--save", "car-0")
	require.NoError(t, err)

	var result struct {
		Stats struct {
			Tick  uint64 `json:"tick"`
			Fleet int    `json:"fleet"`
		} `json:"stats"`
		Vehicles []map[string]any `json:"vehicles"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, uint64(20), result.Stats.Tick)
	assert.Equal(t, 1, result.Stats.Fleet)
	assert.Len(t, result.Vehicles, 2)
	assert.FileExists(t, filepath.Join(dir, "brain.json"))

	// the saved brain is picked up by the next run
	_, err = runApp(t, "run", "--config", cfgPath, "--ticks", "1")
	require.NoError(t, err)

	_, err = runApp(t, "run", "--config", cfgPath, "--ticks", "1", "--save", "traffic-0")
	assert.Error(t, err)
}
