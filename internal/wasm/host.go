package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
)

// HostFunctionsImpl implements host functions for Wasm modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// Export registers the host functions on a builder for the "host" module.
func (h *HostFunctionsImpl) Export(builder wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	return builder.NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export(abi.ImportLogMessage)
}

// logMessage is called by Wasm modules to log messages.
// Signature: log_message(level, ptr, length)
func (h *HostFunctionsImpl) logMessage(ctx context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	// Read message from Wasm memory.
	msg, ok := mod.Memory().Read(ptr, length)
	if !ok {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
		)
		return
	}

	logger := h.logger.With(zap.String("guest", mod.Name()))
	switch level {
	case abi.LogDebug:
		logger.Debug(string(msg))
	case abi.LogWarn:
		logger.Warn(string(msg))
	case abi.LogError:
		logger.Error(string(msg))
	default:
		logger.Info(string(msg))
	}
}
