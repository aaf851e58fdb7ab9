package wasm

import (
	"bytes"
	"errors"

	"github.com/tetratelabs/wazero/api"
)

var (
	errOutOfRange     = errors.New("out of range of memory")
	errNoTerminator   = errors.New("no NUL terminator within limit")
	errNoMemoryExport = errors.New("module exports no memory")
)

// Memory provides bounds-checked reads from a guest's linear memory.
//
// Guests hand results back as addresses into their own memory. Every read goes
// through api.Memory, so a bad address surfaces as a MemoryAccessError rather
// than a panic, and strings are copied out before the guest can reuse the buffer.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	if m.mem == nil {
		return 0
	}
	return m.mem.Size()
}

// ReadString copies a NUL-terminated string starting at ptr. At most maxLen
// bytes, terminator included, are inspected; the read is clipped at the end
// of memory.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, error) {
	if m.mem == nil {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: maxLen, Err: errNoMemoryExport}
	}

	size := m.mem.Size()
	if ptr >= size {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}
	n := maxLen
	if rest := size - ptr; rest < n {
		n = rest
	}

	buf, ok := m.mem.Read(ptr, n)
	if !ok {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: n, Err: errOutOfRange}
	}

	end := bytes.IndexByte(buf, 0)
	if end < 0 {
		return "", &MemoryAccessError{Operation: "read_string", Address: ptr, Length: n, Err: errNoTerminator}
	}

	return string(buf[:end]), nil
}

// ReadBytes copies length bytes starting at ptr.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	if m.mem == nil {
		return nil, &MemoryAccessError{Operation: "read_bytes", Address: ptr, Length: length, Err: errNoMemoryExport}
	}
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read_bytes", Address: ptr, Length: length, Err: errOutOfRange}
	}
	return bytes.Clone(buf), nil
}
