package wasm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runtime owns the process-wide wazero runtime, the compiled guest cache and
// the set of live instances.
type Runtime struct {
	runtime wazero.Runtime
	config  *RuntimeConfig
	logger  *zap.Logger

	mu        sync.Mutex
	modules   map[string]*CompiledModule // cache name -> module
	instances map[string]*Instance       // instance ID -> instance
	closed    bool
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limit per guest in 64KiB pages. Zero keeps wazero's default.
	MemoryPages uint32

	// Route guest stdout and stderr to the host's stderr.
	DebugEnabled bool

	// Directory for wazero's on-disk compilation cache. Empty disables it.
	CacheDir string

	// Maximum number of live instances. Zero means unlimited.
	MaxInstances int

	// Upper bound for a single exported call. Zero disables the limit.
	ExecutionTimeout time.Duration
}

// CompiledModule is a validated guest ready to instantiate.
type CompiledModule struct {
	Module wazero.CompiledModule

	Name       string // cache key
	Source     string // file path or identifier
	SizeBytes  int64
	CompiledAt int64 // unix seconds
}

// NewRuntime creates the wazero runtime and instantiates WASI into it.
// Call it once per process.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	if config == nil {
		config = DefaultRuntimeConfig()
	}

	rc := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}
	if config.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", config.CacheDir, err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	// Go wasip1 guests import WASI even when they never touch a file.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.Duration("execution_timeout", config.ExecutionTimeout),
	)

	return &Runtime{
		runtime:   r,
		config:    config,
		logger:    logger.With(zap.String("component", "wasm-runtime")),
		modules:   make(map[string]*CompiledModule),
		instances: make(map[string]*Instance),
	}, nil
}

func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:      256, // 16MB
		MaxInstances:     100,
		ExecutionTimeout: 30 * time.Second,
	}
}

func (r *Runtime) Config() *RuntimeConfig {
	return r.config
}

// Close closes every live instance and then the wazero runtime. Later calls
// are no-ops.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	live := make([]*Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		live = append(live, inst)
	}
	r.modules = make(map[string]*CompiledModule)
	r.mu.Unlock()

	r.logger.Info("Shutting down Wasm runtime", zap.Int("instances", len(live)))

	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	var err error
	for _, inst := range live {
		if closeErr := inst.Close(ctx); closeErr != nil {
			r.logger.Warn("Failed to close instance",
				zap.String("instance_id", inst.ID),
				zap.Error(closeErr),
			)
			err = multierr.Append(err, closeErr)
		}
	}

	// Closing the runtime also releases every compiled module.
	err = multierr.Append(err, r.runtime.Close(ctx))

	r.logger.Info("Wasm runtime shutdown complete")
	return err
}

func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mod, ok := r.modules[name]
	return mod, ok
}

func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[module.Name] = module
}

// replaceCompiledModule caches module and releases the compiled code it
// displaces. Instances created from the old module keep running.
func (r *Runtime) replaceCompiledModule(ctx context.Context, module *CompiledModule) {
	r.mu.Lock()
	old, ok := r.modules[module.Name]
	r.modules[module.Name] = module
	r.mu.Unlock()

	if ok && old != module {
		r.closeCompiled(ctx, old)
	}
}

// DeleteCompiledModule drops a module from the cache and releases its compiled code.
// Instances created from it keep running.
func (r *Runtime) DeleteCompiledModule(ctx context.Context, name string) {
	r.mu.Lock()
	mod, ok := r.modules[name]
	delete(r.modules, name)
	r.mu.Unlock()

	if ok {
		r.closeCompiled(ctx, mod)
	}
}

func (r *Runtime) closeCompiled(ctx context.Context, mod *CompiledModule) {
	if mod.Module == nil {
		return
	}
	if err := mod.Module.Close(ctx); err != nil {
		r.logger.Warn("Failed to close compiled module",
			zap.String("module", mod.Name),
			zap.Error(err),
		)
	}
}

// Instance returns a live instance by ID.
func (r *Runtime) Instance(instanceID string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[instanceID]
	return inst, ok
}

// trackInstance records inst as live, enforcing MaxInstances.
func (r *Runtime) trackInstance(inst *Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}
	if limit := r.config.MaxInstances; limit > 0 && len(r.instances) >= limit {
		return &InstanceLimitError{Limit: limit}
	}
	r.instances[inst.ID] = inst
	return nil
}

func (r *Runtime) untrackInstance(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, instanceID)
}

func (r *Runtime) InstanceCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

func (r *Runtime) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
