// Package wasm describes the ABI between compiled guests and their hosts.
//
// Guests export the following functions with //go:wasmexport:
//
//	//go:wasmexport size
//	func size(x, y float64) float64
//
//	//go:wasmexport get_version
//	func getVersion() uint32
//
//	//go:wasmexport release
//	func release(ptr uint32)
//
// get_version returns the address of a NUL-terminated string in guest memory,
// or 0 when the linked library reported no version. Every call allocates a new
// string that stays valid until the host passes its address to release.
// release is optional; hosts must not call it for a 0 address.
//
// NOTE: uint32 is used for pointers because WebAssembly uses a 32-bit linear
// memory model. See: https://github.com/golang/go/issues/59156
//
// Guests may import log_message from the "host" module:
//
//	//go:wasmimport host log_message
//	func logMessage(level, ptr, length uint32)
package wasm

// Exported function names.
const (
	ExportSize       = "size"
	ExportGetVersion = "get_version"
	ExportRelease    = "release"

	// ExportInitialize is run by hosts, when present, before any other export.
	// Go reactors built with -buildmode=c-shared export it.
	ExportInitialize = "_initialize"
)

// HostModule is the import module name hosts provide.
const HostModule = "host"

// Imported function names in HostModule.
const (
	ImportLogMessage = "log_message"
)

// Log levels accepted by log_message.
const (
	LogDebug uint32 = 0
	LogInfo  uint32 = 1
	LogWarn  uint32 = 2
	LogError uint32 = 3
)

// MaxVersionLen bounds the string read back from get_version, terminator included.
const MaxVersionLen = 64
