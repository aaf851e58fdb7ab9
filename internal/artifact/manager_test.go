package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmdemo/internal/config"
	"github.com/woxQAQ/wasmdemo/internal/wasm"
	"github.com/woxQAQ/wasmdemo/internal/wasm/wasmtest"
)

func newTestManager(t *testing.T, paths ...string) *Manager {
	t.Helper()
	runtime := newTestRuntime(t)
	cfg := &config.Config{ArtifactPaths: paths}
	return NewManager(cfg, runtime, wasm.NewHostFunctions(zap.NewNop()), zap.NewNop())
}

func TestManager_NewManager(t *testing.T) {
	manager := newTestManager(t, "/tmp/artifacts")

	if manager == nil {
		t.Fatal("NewManager() returned nil")
	}

	if manager.IsLoaded() {
		t.Error("Manager should not be loaded initially")
	}
}

func TestManager_LoadAll(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeValidArtifact(t, base, "hypot")
	manager := newTestManager(t, base)

	require.NoError(t, manager.LoadAll(ctx))
	require.True(t, manager.IsLoaded())
	require.Equal(t, 1, manager.Registry().Count())

	// Loading twice is refused.
	require.Error(t, manager.LoadAll(ctx))

	artifact, err := manager.GetArtifact("hypot")
	require.NoError(t, err)
	require.Equal(t, "hypot", artifact.Name())

	found, err := manager.FindArtifactForExport("get_version")
	require.NoError(t, err)
	require.Same(t, artifact, found)
}

func TestManager_LoadAll_Empty(t *testing.T) {
	manager := newTestManager(t, t.TempDir())

	require.NoError(t, manager.LoadAll(context.Background()))
	require.True(t, manager.IsLoaded())
	require.Equal(t, 0, manager.Registry().Count())
}

func TestManager_GetArtifact_NotFound(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.GetArtifact("nonexistent")
	if err == nil {
		t.Fatal("GetArtifact() should fail for non-existent artifact")
	}

	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("expected NotFoundError, got %T", err)
	}
}

func TestManager_FindArtifactForExport_NotFound(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.FindArtifactForExport("size"); err == nil {
		t.Fatal("FindArtifactForExport() should fail when no artifacts are loaded")
	}
}

func TestManager_Instantiate(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	writeValidArtifact(t, base, "hypot")
	manager := newTestManager(t, base)
	require.NoError(t, manager.LoadAll(ctx))

	instance, err := manager.Instantiate(ctx, "hypot")
	require.NoError(t, err)
	defer instance.Close(ctx)

	got, err := instance.Size(ctx, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 5.0, got)

	v, err := instance.GetVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "1.2.6", v)

	_, err = manager.Instantiate(ctx, "missing")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestManager_Reload(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dir := writeValidArtifact(t, base, "hypot")
	manager := newTestManager(t, base)
	require.NoError(t, manager.LoadAll(ctx))

	before, err := manager.GetArtifact("hypot")
	require.NoError(t, err)

	// Swap in a guest that reports no version.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), wasmtest.NullVersion(), 0o644))

	after, err := manager.Reload(ctx, dir)
	require.NoError(t, err)
	require.NotSame(t, before, after)

	instance, err := manager.Instantiate(ctx, "hypot")
	require.NoError(t, err)
	defer instance.Close(ctx)

	_, err = instance.GetVersion(ctx)
	var unavailable *wasm.VersionUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestManager_Shutdown(t *testing.T) {
	ctx := context.Background()
	runtime, err := wasm.NewRuntime(ctx, zap.NewNop(), wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}

	manager := NewManager(&config.Config{}, runtime, wasm.NewHostFunctions(zap.NewNop()), zap.NewNop())

	// Shutdown should work even without loaded artifacts
	if err := manager.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after shutdown")
	}
}

func TestManager_LoadAll_AllFailed(t *testing.T) {
	base := t.TempDir()
	writeArtifact(t, base, "broken", validManifest, wasmtest.WrongSignature())
	manager := newTestManager(t, base)

	err := manager.LoadAll(context.Background())
	var sigErr *wasm.SignatureError
	require.ErrorAs(t, err, &sigErr)
	require.False(t, manager.IsLoaded())
}

func TestManager_Reload_FailureKeepsArtifact(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	dir := writeValidArtifact(t, base, "hypot")
	manager := newTestManager(t, base)
	require.NoError(t, manager.LoadAll(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.wasm"), []byte("garbage"), 0o644))
	_, err := manager.Reload(ctx, dir)
	require.Error(t, err)

	instance, err := manager.Instantiate(ctx, "hypot")
	require.NoError(t, err)
	defer instance.Close(ctx)

	got, err := instance.Size(ctx, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 5.0, got)
}
