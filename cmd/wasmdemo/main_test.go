package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/woxQAQ/wasmdemo/internal/artifact"
	"github.com/woxQAQ/wasmdemo/internal/wasm/wasmtest"
	"github.com/woxQAQ/wasmdemo/pkg/protocol"
)

// setupArtifacts writes a hypot artifact and a config file pointing at it.
func setupArtifacts(t *testing.T) string {
	configPath, _ := setupArtifactDir(t)
	return configPath
}

// setupArtifactDir is setupArtifacts that also returns the artifact directory.
func setupArtifactDir(t *testing.T) (string, string) {
	t.Helper()

	base := t.TempDir()
	dir := filepath.Join(base, "hypot")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	manifest := `name: hypot
version: 0.1.0
library: libebur128
wasm:
  file: main.wasm
exports: [size, get_version]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), wasmtest.Hypot(), 0o644))

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "artifact_paths:\n  - " + base + "\nwasm:\n  memory_pages: 16\n"
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o644))
	return configPath, dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestSizeNative(t *testing.T) {
	out, err := run(t, "size", "3", "4", "--native")
	require.NoError(t, err)
	require.Equal(t, "5\n", out)

	out, err = run(t, "size", "NaN", "1", "--native")
	require.NoError(t, err)
	require.Equal(t, "NaN\n", out)

	out, err = run(t, "size", "1e200", "1", "--native", "-o", "json")
	require.NoError(t, err)
	var result protocol.SizeResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, `"+Inf"`, mustJSON(t, result.Size))
	require.Empty(t, result.Artifact)
}

func TestSizeRejectsBadInput(t *testing.T) {
	_, err := run(t, "size", "three", "4", "--native")
	require.ErrorContains(t, err, `invalid x "three"`)

	_, err = run(t, "size", "3", "--native")
	require.Error(t, err)
}

func TestVersionNative(t *testing.T) {
	out, err := run(t, "version", "--native")
	require.NoError(t, err)
	require.Equal(t, "1.2.6\n", out)

	out, err = run(t, "version", "--native", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "version: 1.2.6")
	require.Contains(t, out, "patch: 6")
}

func TestWasmCommands(t *testing.T) {
	configPath := setupArtifacts(t)

	out, err := run(t, "--config", configPath, "size", "3", "4")
	require.NoError(t, err)
	require.Equal(t, "5\n", out)

	out, err = run(t, "--config", configPath, "version", "-o", "json")
	require.NoError(t, err)
	var v protocol.VersionResult
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Equal(t, protocol.VersionResult{Artifact: "hypot", Version: "1.2.6", Major: 1, Minor: 2, Patch: 6}, v)

	out, err = run(t, "--config", configPath, "list")
	require.NoError(t, err)
	require.Contains(t, out, "hypot")
	require.Contains(t, out, "size, get_version")

	_, err = run(t, "--config", configPath, "size", "3", "4", "--artifact", "missing")
	require.Error(t, err)
}

func TestInvalidOutputFormat(t *testing.T) {
	_, err := run(t, "size", "3", "4", "--native", "-o", "xml")
	require.ErrorContains(t, err, `invalid output format "xml"`)
}

func TestRenderText(t *testing.T) {
	var out bytes.Buffer
	writeArtifactTable(&out, []protocol.ArtifactInfo{{
		Name:      "hypot",
		Version:   "0.1.0",
		Exports:   []string{"size"},
		SizeBytes: 42,
	}})
	require.True(t, strings.Contains(out.String(), "NAME"), out.String())
	require.Contains(t, out.String(), "42")
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

// syncBuffer is a bytes.Buffer safe for a command writing from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchReloadsRewrittenModule(t *testing.T) {
	configPath, dir := setupArtifactDir(t)

	var out syncBuffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", configPath, "--log-level", "error", "watch"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	// The watcher starts asynchronously, so keep rewriting until a reload shows up.
	wasmPath := filepath.Join(dir, "main.wasm")
	require.Eventually(t, func() bool {
		if err := os.WriteFile(wasmPath, wasmtest.Hypot(), 0o644); err != nil {
			return false
		}
		return strings.Contains(out.String(), "reloaded hypot 0.1.0")
	}, 10*time.Second, 300*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
