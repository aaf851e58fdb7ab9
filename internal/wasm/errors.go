package wasm

import (
	"errors"
	"fmt"
	"time"
)

// ErrRuntimeClosed is returned for operations on a closed Runtime.
var ErrRuntimeClosed = errors.New("wasm runtime is closed")

// CompilationError occurs when Wasm module compilation fails
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when an exported function is missing
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryAccessError occurs when memory operations fail
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// SignatureError occurs when an export exists with the wrong signature
type SignatureError struct {
	FunctionName string
	Message      string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("function '%s': %s", e.FunctionName, e.Message)
}

// InstanceLimitError occurs when MaxInstances instances are already live
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit of %d reached", e.Limit)
}

// VersionUnavailableError occurs when get_version returns a null pointer
type VersionUnavailableError struct {
	InstanceID string
}

func (e *VersionUnavailableError) Error() string {
	return fmt.Sprintf("instance %s reported no library version", e.InstanceID)
}

// CallError occurs when an exported function traps or fails
type CallError struct {
	FunctionName string
	InstanceID   string
	Err          error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("call to '%s' failed (instance: %s): %v", e.FunctionName, e.InstanceID, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// TimeoutError occurs when Wasm execution times out
type TimeoutError struct {
	FunctionName string
	Duration     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm execution of '%s' timed out after %v", e.FunctionName, e.Duration)
}
