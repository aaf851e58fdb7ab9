// Package host runs compiled guests on behalf of the CLI.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
	"github.com/woxQAQ/wasmdemo/internal/artifact"
	"github.com/woxQAQ/wasmdemo/internal/config"
	"github.com/woxQAQ/wasmdemo/internal/wasm"
	"github.com/woxQAQ/wasmdemo/pkg/version"
)

// Host owns the Wasm runtime and keeps one live instance per artifact.
type Host struct {
	cfg         *config.Config
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	manager     *artifact.Manager

	mu       sync.Mutex
	sessions map[string]*wasm.Instance // artifact name -> instance
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Host, error) {
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: cfg.Wasm.Timeout(),
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	manager := artifact.NewManager(cfg, wasmRuntime, wasm.NewHostFunctions(logger), logger)
	if err := manager.LoadAll(ctx); err != nil {
		_ = wasmRuntime.Close(ctx)
		return nil, fmt.Errorf("failed to load artifacts: %w", err)
	}

	logger.Info("Host initialized",
		zap.Int("artifacts", manager.Registry().Count()),
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
	)

	return &Host{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "host")),
		wasmRuntime: wasmRuntime,
		manager:     manager,
		sessions:    make(map[string]*wasm.Instance),
	}, nil
}

// Artifacts lists the loaded artifacts ordered by name.
func (h *Host) Artifacts() []*artifact.Artifact {
	return h.manager.Registry().List()
}

// Size calls size on the named artifact, or on the first artifact exporting
// it when name is empty.
func (h *Host) Size(ctx context.Context, name string, x, y float64) (float64, string, error) {
	a, err := h.resolve(name, abi.ExportSize)
	if err != nil {
		return 0, "", err
	}

	var result float64
	err = h.withInstance(ctx, a.Name(), func(inst abi.Exports) error {
		var callErr error
		result, callErr = inst.Size(ctx, x, y)
		return callErr
	})
	return result, a.Name(), err
}

// Version calls get_version on the named artifact, or on the first artifact
// exporting it when name is empty, and checks the result is a plain
// major.minor.patch version.
func (h *Host) Version(ctx context.Context, name string) (version.Triple, string, error) {
	a, err := h.resolve(name, abi.ExportGetVersion)
	if err != nil {
		return version.Triple{}, "", err
	}

	var s string
	err = h.withInstance(ctx, a.Name(), func(inst abi.Exports) error {
		var callErr error
		s, callErr = inst.GetVersion(ctx)
		return callErr
	})
	if err != nil {
		return version.Triple{}, a.Name(), err
	}

	t, err := version.Parse(s)
	if err != nil {
		return version.Triple{}, a.Name(), fmt.Errorf("artifact %s: %w", a.Name(), err)
	}
	return t, a.Name(), nil
}

// Reload recompiles the artifact in dir. The next call to it runs on a new instance.
func (h *Host) Reload(ctx context.Context, dir string) (*artifact.Artifact, error) {
	a, err := h.manager.Reload(ctx, dir)
	if err != nil {
		return nil, err
	}
	h.dropSession(ctx, a.Name())
	return a, nil
}

// Close gracefully shuts down the host.
func (h *Host) Close(ctx context.Context) error {
	h.logger.Info("Shutting down host")

	h.mu.Lock()
	h.sessions = make(map[string]*wasm.Instance)
	h.mu.Unlock()

	// The runtime closes every live instance.
	if err := h.manager.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown Wasm runtime", zap.Error(err))
		return err
	}

	h.logger.Info("Host shutdown complete")
	return nil
}

func (h *Host) resolve(name, export string) (*artifact.Artifact, error) {
	if name == "" {
		return h.manager.FindArtifactForExport(export)
	}

	a, err := h.manager.GetArtifact(name)
	if err != nil {
		return nil, err
	}
	if !a.HasExport(export) {
		return nil, fmt.Errorf("artifact %s does not declare export '%s'", name, export)
	}
	return a, nil
}

// withInstance runs fn against the artifact's session, creating it on demand.
// A session whose call fails for any reason other than a missing version is
// discarded, so a trapped or timed-out module is not reused.
func (h *Host) withInstance(ctx context.Context, name string, fn func(abi.Exports) error) error {
	inst, err := h.session(ctx, name)
	if err != nil {
		return err
	}

	err = fn(inst)
	var unavailable *wasm.VersionUnavailableError
	if err != nil && !errors.As(err, &unavailable) {
		h.logger.Warn("Discarding instance after failed call",
			zap.String("artifact", name),
			zap.String("instance_id", inst.ID),
			zap.Error(err),
		)
		h.discard(ctx, name, inst)
	}
	return err
}

func (h *Host) session(ctx context.Context, name string) (*wasm.Instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if inst, ok := h.sessions[name]; ok {
		return inst, nil
	}

	inst, err := h.manager.Instantiate(ctx, name)
	if err != nil {
		return nil, err
	}
	h.sessions[name] = inst
	return inst, nil
}

func (h *Host) dropSession(ctx context.Context, name string) {
	h.mu.Lock()
	inst, ok := h.sessions[name]
	delete(h.sessions, name)
	h.mu.Unlock()

	if ok {
		if err := inst.Close(ctx); err != nil {
			h.logger.Warn("Failed to close instance",
				zap.String("artifact", name),
				zap.Error(err),
			)
		}
	}
}

// discard closes inst and forgets it unless the session was already replaced.
func (h *Host) discard(ctx context.Context, name string, inst *wasm.Instance) {
	h.mu.Lock()
	if h.sessions[name] == inst {
		delete(h.sessions, name)
	}
	h.mu.Unlock()

	if err := inst.Close(ctx); err != nil {
		h.logger.Warn("Failed to close instance",
			zap.String("artifact", name),
			zap.Error(err),
		)
	}
}
