//go:build js && wasm

// Command web registers size and get_version on the page's global object.
//
// Build with:
//
//	cp "$(go env GOROOT)/lib/wasm/wasm_exec.js" web/
//	GOOS=js GOARCH=wasm go build -o web/main.wasm ./cmd/web
package main

import (
	"syscall/js"

	"github.com/woxQAQ/wasmdemo/pkg/ebur128"
	"github.com/woxQAQ/wasmdemo/pkg/geometry"
	"github.com/woxQAQ/wasmdemo/pkg/version"
)

func main() {
	global := js.Global()

	global.Set("size", js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return global.Get("NaN")
		}
		return js.ValueOf(geometry.Size(args[0].Float(), args[1].Float()))
	}))

	global.Set("get_version", js.FuncOf(func(this js.Value, args []js.Value) any {
		s, err := version.Report(ebur128.Library{})
		if err != nil {
			return js.Null()
		}
		return js.ValueOf(s)
	}))

	println("wasmdemo: size and get_version registered")
	select {}
}
