package host

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/woxQAQ/wasmdemo/internal/artifact"
	"github.com/woxQAQ/wasmdemo/internal/config"
	"github.com/woxQAQ/wasmdemo/internal/wasm"
	"github.com/woxQAQ/wasmdemo/internal/wasm/wasmtest"
	"github.com/woxQAQ/wasmdemo/pkg/version"
)

func writeArtifact(t *testing.T, base, name string, exports string, guest []byte) string {
	t.Helper()

	dir := filepath.Join(base, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	manifest := "name: " + name + "\nversion: 0.1.0\nwasm:\n  file: main.wasm\nexports: " + exports + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.ManifestFile), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), guest, 0o644))
	return dir
}

func newTestHost(t *testing.T, paths ...string) *Host {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		ArtifactPaths: paths,
		Wasm: config.WasmConfig{
			MemoryPages:      16,
			MaxInstances:     10,
			ExecutionTimeout: 5,
		},
	}

	h, err := New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(ctx) })
	return h
}

func TestHostSize(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeArtifact(t, base, "hypot", "[size, get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	got, name, err := h.Size(ctx, "", 3, 4)
	require.NoError(t, err)
	require.Equal(t, "hypot", name)
	require.Equal(t, 5.0, got)

	got, _, err = h.Size(ctx, "hypot", math.NaN(), 0)
	require.NoError(t, err)
	require.True(t, math.IsNaN(got))

	_, _, err = h.Size(ctx, "missing", 1, 1)
	var notFound *artifact.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestHostVersion(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeArtifact(t, base, "hypot", "[size, get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	got, name, err := h.Version(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "hypot", name)
	require.Equal(t, version.Triple{Major: 1, Minor: 2, Patch: 6}, got)

	again, _, err := h.Version(ctx, "hypot")
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestHostVersionUnavailable(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeArtifact(t, base, "silent", "[get_version]", wasmtest.NullVersion())
	h := newTestHost(t, base)

	_, _, err := h.Version(ctx, "silent")
	var unavailable *wasm.VersionUnavailableError
	require.ErrorAs(t, err, &unavailable)

	// The session survives a missing version.
	_, _, err = h.Version(ctx, "silent")
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, h.sessions, 1)
}

func TestHostUndeclaredExport(t *testing.T) {
	base := t.TempDir()
	writeArtifact(t, base, "sizer", "[size]", wasmtest.Hypot())
	h := newTestHost(t, base)

	_, _, err := h.Version(context.Background(), "sizer")
	require.Error(t, err)

	_, _, err = h.Version(context.Background(), "")
	require.Error(t, err)
}

func TestHostReload(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dir := writeArtifact(t, base, "hypot", "[size, get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	_, _, err := h.Version(ctx, "hypot")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), wasmtest.NullVersion(), 0o644))
	a, err := h.Reload(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, "hypot", a.Name())

	_, _, err = h.Version(ctx, "hypot")
	var unavailable *wasm.VersionUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestHostReloadFailureKeepsArtifact(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dir := writeArtifact(t, base, "hypot", "[size, get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	got, _, err := h.Size(ctx, "hypot", 3, 4)
	require.NoError(t, err)
	require.Equal(t, 5.0, got)

	// A module caught halfway through a rebuild.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), []byte("\x00asm\x01"), 0o644))
	_, err = h.Reload(ctx, dir)
	var compErr *wasm.CompilationError
	require.ErrorAs(t, err, &compErr)

	// Both the live session and a fresh instance still use the last good module.
	got, _, err = h.Size(ctx, "hypot", 6, 8)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)

	h.dropSession(ctx, "hypot")
	got, _, err = h.Size(ctx, "hypot", 5, 12)
	require.NoError(t, err)
	require.Equal(t, 13.0, got)

	v, _, err := h.Version(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "1.2.6", v.String())
}

func TestHostConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeArtifact(t, base, "hypot", "[size, get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x := float64(i)
			got, _, err := h.Size(ctx, "", x, 0)
			if err != nil || got != x {
				t.Errorf("size(%v, 0) = %v, %v", x, got, err)
			}
			if _, _, err := h.Version(ctx, ""); err != nil {
				t.Errorf("version: %v", err)
			}
		}(i)
	}
	wg.Wait()
}

func TestHostArtifacts(t *testing.T) {
	base := t.TempDir()
	writeArtifact(t, base, "b", "[size]", wasmtest.Hypot())
	writeArtifact(t, base, "a", "[get_version]", wasmtest.Hypot())
	h := newTestHost(t, base)

	list := h.Artifacts()
	require.Len(t, list, 2)
	require.Equal(t, "a", list[0].Name())
	require.Equal(t, "b", list[1].Name())
}
