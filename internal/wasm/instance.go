package wasm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
)

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl

	// Guards instantiation of the shared "host" import module.
	hostMu sync.Mutex
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, a UUID is generated).
	InstanceID string
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module api.Module

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	// Exported functions (cached for performance).
	exports map[string]api.Function

	runtime *Runtime
	timeout time.Duration
	logger  *zap.Logger

	// A wazero module is not safe for concurrent calls.
	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

var _ abi.Exports = (*Instance)(nil)

// Instantiate creates a new instance from a compiled module.
// The "host" import module is instantiated on first use.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	if m.runtime.IsClosed() {
		return nil, ErrRuntimeClosed
	}

	// Checked again under the runtime lock once the instance exists.
	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	// Get compiled module from cache.
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	// Generate instance ID if not provided.
	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = "inst-" + uuid.NewString()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if err := m.ensureHostModule(ctx); err != nil {
		return nil, err
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions(abi.ExportInitialize) // skipped when not exported
	if m.runtime.config.DebugEnabled {
		moduleConfig = moduleConfig.WithStdout(os.Stderr).WithStderr(os.Stderr)
	}

	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	// Cache exported functions.
	exports := m.cacheExportedFunctions(module)

	// Create instance wrapper.
	instance := &Instance{
		module:    module,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		exports:   exports,
		runtime:   m.runtime,
		timeout:   m.runtime.config.ExecutionTimeout,
		logger:    m.logger.With(zap.String("instance_id", instanceID)),
	}

	if err := m.runtime.trackInstance(instance); err != nil {
		_ = module.Close(ctx)
		return nil, err
	}

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
	)

	return instance, nil
}

// ensureHostModule instantiates the "host" module the first time a guest needs it.
func (m *InstanceManager) ensureHostModule(ctx context.Context) error {
	m.hostMu.Lock()
	defer m.hostMu.Unlock()

	if m.runtime.runtime.Module(abi.HostModule) != nil {
		return nil
	}

	builder := m.hostFuncs.Export(m.runtime.runtime.NewHostModuleBuilder(abi.HostModule))
	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("failed to instantiate host module: %w", err)
	}
	return nil
}

// cacheExportedFunctions caches references to exported functions.
func (m *InstanceManager) cacheExportedFunctions(module api.Module) map[string]api.Function {
	exports := make(map[string]api.Function)

	for _, name := range []string{abi.ExportSize, abi.ExportGetVersion, abi.ExportRelease} {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}

	return exports
}

// Size calls the guest's size export.
func (i *Instance) Size(ctx context.Context, x, y float64) (float64, error) {
	results, err := i.call(ctx, abi.ExportSize, api.EncodeF64(x), api.EncodeF64(y))
	if err != nil {
		return 0, err
	}
	return api.DecodeF64(results[0]), nil
}

// GetVersion calls get_version and returns a copy of the string it points to.
// The guest buffer is released before returning.
func (i *Instance) GetVersion(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	results, err := i.callLocked(ctx, abi.ExportGetVersion)
	if err != nil {
		return "", err
	}

	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return "", &VersionUnavailableError{InstanceID: i.ID}
	}

	s, readErr := NewMemory(i.module).ReadString(ptr, abi.MaxVersionLen)

	if _, ok := i.exports[abi.ExportRelease]; ok {
		if _, err := i.callLocked(ctx, abi.ExportRelease, api.EncodeU32(ptr)); err != nil {
			i.logger.Warn("Failed to release version buffer",
				zap.Uint32("ptr", ptr),
				zap.Error(err),
			)
		}
	}

	if readErr != nil {
		return "", readErr
	}
	return s, nil
}

func (i *Instance) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.callLocked(ctx, name, params...)
}

func (i *Instance) callLocked(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}

	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	results, err := fn.Call(callCtx, params...)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{FunctionName: name, Duration: i.timeout}
		}
		return nil, &CallError{FunctionName: name, InstanceID: i.ID, Err: err}
	}
	return results, nil
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.closeOnce.Do(func() {
		i.closeErr = i.module.Close(ctx)
		i.runtime.untrackInstance(i.ID)
	})
	return i.closeErr
}
