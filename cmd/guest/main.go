//go:build wasip1

// Command guest is the WASI reactor loaded by wasmdemo.
//
// Build with:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o artifacts/hypot/main.wasm ./cmd/guest
package main

import (
	"unsafe"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
	"github.com/woxQAQ/wasmdemo/pkg/ebur128"
	"github.com/woxQAQ/wasmdemo/pkg/geometry"
	"github.com/woxQAQ/wasmdemo/pkg/version"
)

// pinned keeps get_version results reachable until the host releases them.
var pinned = map[uint32][]byte{}

//go:wasmimport host log_message
func logMessage(level, ptr, length uint32)

func hostLog(level uint32, msg string) {
	if msg == "" {
		return
	}
	b := []byte(msg)
	logMessage(level, uint32(uintptr(unsafe.Pointer(&b[0]))), uint32(len(b)))
}

//go:wasmexport size
func size(x, y float64) float64 {
	return geometry.Size(x, y)
}

//go:wasmexport get_version
func getVersion() uint32 {
	s, err := version.Report(ebur128.Library{})
	if err != nil {
		hostLog(abi.LogError, err.Error())
		return 0
	}

	buf := make([]byte, len(s)+1)
	copy(buf, s)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	pinned[ptr] = buf
	return ptr
}

//go:wasmexport release
func release(ptr uint32) {
	delete(pinned, ptr)
}

func main() {}
