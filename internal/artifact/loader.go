package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmdemo/internal/wasm"
)

// Loader handles loading artifacts from disk.
type Loader struct {
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new artifact loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "artifact-loader")),
	}
}

// LoadArtifact loads a single artifact from a directory.
func (l *Loader) LoadArtifact(ctx context.Context, dir string) (*Artifact, error) {
	return l.load(ctx, dir, l.moduleLoader.LoadModule)
}

// ReloadArtifact recompiles the module of dir and replaces the cached one.
// When the new module fails to load, the previously cached module is kept.
func (l *Loader) ReloadArtifact(ctx context.Context, dir string) (*Artifact, error) {
	return l.load(ctx, dir, l.moduleLoader.ReplaceModule)
}

type compileFunc func(context.Context, wasm.ModuleSource) (*wasm.CompiledModule, error)

func (l *Loader) load(ctx context.Context, dir string, compile compileFunc) (*Artifact, error) {
	l.logger.Debug("Loading artifact", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading artifact",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.String("library", manifest.Library),
	)

	compiled, err := compile(ctx, &wasm.FileModuleSource{Path: manifest.WasmPath()})
	if err != nil {
		return nil, &LoadError{
			ArtifactName: manifest.Name,
			Err:          err,
		}
	}

	artifact := &Artifact{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Artifact loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return artifact, nil
}

// Evict forgets the compiled module of an artifact.
func (l *Loader) Evict(ctx context.Context, a *Artifact) {
	l.moduleLoader.Evict(ctx, a.Compiled.Name)
}

// DiscoverArtifacts scans directories for artifacts.
// Artifacts that fail to load are skipped; their errors are combined in the
// second return value. A *NoArtifactsFoundError means no directory held an
// artifact at all.
func (l *Loader) DiscoverArtifacts(ctx context.Context, paths []string) ([]*Artifact, error) {
	var artifacts []*Artifact
	var errs error

	for _, basePath := range paths {
		l.logger.Debug("Scanning artifact directory", zap.String("path", basePath))

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Artifact path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			dir := filepath.Join(basePath, entry.Name())

			artifact, err := l.LoadArtifact(ctx, dir)
			if err != nil {
				l.logger.Error("Failed to load artifact",
					zap.String("dir", dir),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}

			artifacts = append(artifacts, artifact)
		}
	}

	if len(artifacts) > 0 && errs != nil {
		l.logger.Warn("Some artifacts failed to load",
			zap.Int("loaded", len(artifacts)),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}

	if len(artifacts) == 0 {
		if errs != nil {
			return nil, errs
		}
		return nil, &NoArtifactsFoundError{Paths: paths}
	}

	return artifacts, errs
}
