package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woxQAQ/wasmdemo/internal/wasm/wasmtest"
)

const validManifest = `name: hypot
version: 0.1.0
description: test guest
library: libebur128
wasm:
  file: main.wasm
exports:
  - size
  - get_version
`

// writeArtifact creates base/name with the given manifest and, when wasm is
// non-nil, a main.wasm next to it.
func writeArtifact(t *testing.T, base, name, manifest string, wasm []byte) string {
	t.Helper()

	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if manifest != "" {
		if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if wasm != nil {
		if err := os.WriteFile(filepath.Join(dir, "main.wasm"), wasm, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func writeValidArtifact(t *testing.T, base, name string) string {
	t.Helper()
	manifest := "name: " + name + "\n" + validManifest[len("name: hypot\n"):]
	return writeArtifact(t, base, name, manifest, wasmtest.Hypot())
}
