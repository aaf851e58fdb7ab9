package artifact

import (
	"fmt"
)

// ManifestNotFoundError occurs when artifact.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when artifact.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when artifact.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the Wasm file referenced in the manifest doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// LoadError occurs when compiling an artifact's module fails.
type LoadError struct {
	ArtifactName string
	Err          error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load artifact '%s': %v", e.ArtifactName, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError occurs when an artifact is not found in the registry.
type NotFoundError struct {
	ArtifactName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("artifact '%s' not found", e.ArtifactName)
}

// AlreadyRegisteredError occurs when attempting to register a duplicate artifact.
type AlreadyRegisteredError struct {
	ArtifactName string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("artifact '%s' is already registered", e.ArtifactName)
}

// NoArtifactsFoundError occurs when no artifacts are found in the configured paths.
type NoArtifactsFoundError struct {
	Paths []string
}

func (e *NoArtifactsFoundError) Error() string {
	return fmt.Sprintf("no artifacts found in paths: %v", e.Paths)
}
