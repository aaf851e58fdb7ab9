package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmdemo/internal/config"
	"github.com/woxQAQ/wasmdemo/internal/wasm"
)

// Manager manages artifact lifecycle.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool
}

// NewManager creates a new artifact manager.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "artifact-manager")),
	}
}

// LoadAll discovers and loads all artifacts from configured paths.
// Individual artifacts that fail to load are logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("artifacts already loaded")
	}

	m.logger.Info("Loading artifacts",
		zap.Strings("paths", m.cfg.ArtifactPaths),
	)

	artifacts, err := m.loader.DiscoverArtifacts(ctx, m.cfg.ArtifactPaths)
	if err != nil {
		var none *NoArtifactsFoundError
		if errors.As(err, &none) {
			m.logger.Warn("No artifacts found in configured paths",
				zap.Strings("paths", m.cfg.ArtifactPaths),
				zap.Error(err),
			)
			m.loaded = true
			return nil
		}
		if len(artifacts) == 0 {
			// Every artifact present failed to load.
			return err
		}
		m.logger.Warn("Continuing with partially loaded artifacts",
			zap.Int("failed", len(multierr.Errors(err))),
		)
	}

	for _, artifact := range artifacts {
		if err := m.registry.Register(artifact); err != nil {
			m.logger.Error("Failed to register artifact",
				zap.String("name", artifact.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Artifacts loaded successfully",
		zap.Int("count", m.registry.Count()),
	)

	return nil
}

// Reload recompiles the artifact in dir and swaps it into the registry.
// Instances created from the previous module keep running until closed.
func (m *Manager) Reload(ctx context.Context, dir string) (*Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	artifact, err := m.loader.ReloadArtifact(ctx, dir)
	if err != nil {
		return nil, err
	}

	if old := m.registry.Replace(artifact); old != nil && old.Compiled.Name != artifact.Compiled.Name {
		m.loader.Evict(ctx, old)
	}

	m.logger.Info("Artifact reloaded",
		zap.String("name", artifact.Manifest.Name),
		zap.String("dir", dir),
	)
	return artifact, nil
}

// GetArtifact retrieves an artifact by name.
func (m *Manager) GetArtifact(name string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifact, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{ArtifactName: name}
	}

	return artifact, nil
}

// FindArtifactForExport finds the first artifact, by name, declaring export.
func (m *Manager) FindArtifactForExport(export string) (*Artifact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifacts := m.registry.LookupByExport(export)
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no artifact exports '%s'", export)
	}

	return artifacts[0], nil
}

// Instantiate creates a new instance of an artifact.
func (m *Manager) Instantiate(ctx context.Context, name string) (*wasm.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	artifact, ok := m.registry.Get(name)
	if !ok {
		return nil, &NotFoundError{ArtifactName: name}
	}

	return m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: artifact.Compiled.Name,
	})
}

// Shutdown gracefully shuts down all artifacts.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down artifact manager")

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("Artifact manager shutdown complete")
	return nil
}

// Registry returns the artifact registry.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether artifacts have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
