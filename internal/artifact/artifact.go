package artifact

import (
	"time"

	"github.com/woxQAQ/wasmdemo/internal/wasm"
)

// Artifact is a compiled guest together with the manifest describing it.
type Artifact struct {
	// Manifest is the parsed artifact metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the artifact was loaded
	LoadedAt time.Time
}

// Name returns the artifact name.
func (a *Artifact) Name() string {
	return a.Manifest.Name
}

// Version returns the artifact release, not the linked library's.
func (a *Artifact) Version() string {
	return a.Manifest.Version
}

// Library returns the linked library named in the manifest.
func (a *Artifact) Library() string {
	return a.Manifest.Library
}

// Exports returns the exports declared by the manifest.
func (a *Artifact) Exports() []string {
	return a.Manifest.Exports
}

// HasExport reports whether the manifest declares the named export.
func (a *Artifact) HasExport(name string) bool {
	for _, e := range a.Manifest.Exports {
		if e == name {
			return true
		}
	}
	return false
}
