package wasm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// wasmMagic opens every binary Wasm module.
var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// ModuleLoader compiles guests and caches them in the runtime by name.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource supplies guest bytecode under a stable cache name.
type ModuleSource interface {
	Name() string
	Bytes() ([]byte, error)
}

// FileModuleSource reads a guest from disk. The path is the cache name.
type FileModuleSource struct {
	Path string
}

func (f *FileModuleSource) Name() string           { return f.Path }
func (f *FileModuleSource) Bytes() ([]byte, error) { return os.ReadFile(f.Path) }

// MemoryModuleSource serves a guest already held in memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

func (m *MemoryModuleSource) Name() string           { return m.ModuleName }
func (m *MemoryModuleSource) Bytes() ([]byte, error) { return m.Data, nil }

// LoadModule returns the cached module for source, compiling and validating
// it on first use. A module that does not export size and get_version with
// the expected signatures is rejected with a *CompilationError.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	name := source.Name()
	if cached, ok := l.runtime.GetCompiledModule(name); ok {
		l.logger.Debug("Module cache hit", zap.String("module", name))
		return cached, nil
	}

	if l.runtime.IsClosed() {
		return nil, ErrRuntimeClosed
	}

	module, err := l.compile(ctx, source)
	if err != nil {
		return nil, err
	}
	l.runtime.StoreCompiledModule(module)
	return module, nil
}

// ReplaceModule compiles source and swaps it into the cache under the same
// name. The cached module stays in place when compilation or validation fails.
func (l *ModuleLoader) ReplaceModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	if l.runtime.IsClosed() {
		return nil, ErrRuntimeClosed
	}

	module, err := l.compile(ctx, source)
	if err != nil {
		return nil, err
	}
	l.runtime.replaceCompiledModule(ctx, module)
	return module, nil
}

func (l *ModuleLoader) compile(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	name := source.Name()
	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", name, err)
	}
	if !bytes.HasPrefix(wasmBytes, wasmMagic) {
		return nil, &CompilationError{
			ModuleName: name,
			Err:        fmt.Errorf("not a Wasm binary (%d bytes)", len(wasmBytes)),
		}
	}

	l.logger.Info("Compiling Wasm module",
		zap.String("module", name),
		zap.Int("size_bytes", len(wasmBytes)),
	)
	start := time.Now()

	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err == nil {
		if err = ValidateExports(compiled); err != nil {
			_ = compiled.Close(ctx)
		}
	}
	if err != nil {
		return nil, &CompilationError{ModuleName: name, Err: err}
	}

	l.logger.Info("Module compiled",
		zap.String("module", name),
		zap.Duration("duration", time.Since(start)),
	)
	return &CompiledModule{
		Module:     compiled,
		Name:       name,
		Source:     name,
		SizeBytes:  int64(len(wasmBytes)),
		CompiledAt: time.Now().Unix(),
	}, nil
}

func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Path: path})
}

func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}

// Evict forgets a compiled module so the next load recompiles it.
func (l *ModuleLoader) Evict(ctx context.Context, name string) {
	l.logger.Debug("Evicting compiled module", zap.String("module", name))
	l.runtime.DeleteCompiledModule(ctx, name)
}
