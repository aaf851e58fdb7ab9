//go:build !wasm

package wasm

import "context"

// Exports is the host-side view of a guest instance.
type Exports interface {
	// Size calls the guest's size export.
	Size(ctx context.Context, x, y float64) (float64, error)

	// GetVersion calls get_version, copies the string out of guest memory and
	// releases the guest buffer.
	GetVersion(ctx context.Context) (string, error)
}
