package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v3"

	abi "github.com/woxQAQ/wasmdemo/api/wasm"
)

// ManifestFile is the manifest name looked up in each artifact directory.
const ManifestFile = "artifact.yaml"

// Manifest represents the artifact.yaml structure.
type Manifest struct {
	Name        string     `yaml:"name"`
	Version     string     `yaml:"version"`
	Description string     `yaml:"description"`
	Library     string     `yaml:"library"`
	Wasm        WasmConfig `yaml:"wasm"`
	Exports     []string   `yaml:"exports"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
}

var knownExports = map[string]bool{
	abi.ExportSize:       true,
	abi.ExportGetVersion: true,
}

// ParseManifest reads and parses artifact.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if _, err := semver.NewVersion(m.Version); err != nil {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: fmt.Sprintf("version %q is not a semantic version: %v", m.Version, err),
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	if len(m.Exports) == 0 {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "exports",
			Message: "at least one export is required",
		}
	}

	for _, e := range m.Exports {
		if !knownExports[e] {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "exports",
				Message: fmt.Sprintf("unknown export: %s (must be one of: size, get_version)", e),
			}
		}
	}

	// Validate Wasm file exists
	if _, err := os.Stat(m.WasmPath()); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, ManifestFile)
}

// WasmPath returns the path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
