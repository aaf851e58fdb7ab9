package artifact

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded artifacts.
type Registry struct {
	sync.RWMutex
	artifacts map[string]*Artifact   // name -> artifact
	byExport  map[string][]*Artifact // export -> artifacts
	logger    *zap.Logger
}

// NewRegistry creates a new artifact registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		artifacts: make(map[string]*Artifact),
		byExport:  make(map[string][]*Artifact),
		logger:    logger.With(zap.String("component", "artifact-registry")),
	}
}

// Register adds an artifact to the registry.
func (r *Registry) Register(artifact *Artifact) error {
	r.Lock()
	defer r.Unlock()

	if _, exists := r.artifacts[artifact.Manifest.Name]; exists {
		return &AlreadyRegisteredError{ArtifactName: artifact.Manifest.Name}
	}
	r.register(artifact)
	return nil
}

// Replace registers artifact, swapping out any artifact of the same name.
// It returns the artifact that was replaced, if any.
func (r *Registry) Replace(artifact *Artifact) *Artifact {
	r.Lock()
	defer r.Unlock()

	old := r.artifacts[artifact.Manifest.Name]
	if old != nil {
		r.unregister(old.Manifest.Name)
	}
	r.register(artifact)
	return old
}

func (r *Registry) register(artifact *Artifact) {
	name := artifact.Manifest.Name

	r.artifacts[name] = artifact
	for _, e := range artifact.Manifest.Exports {
		r.byExport[e] = append(r.byExport[e], artifact)
	}

	r.logger.Info("Artifact registered",
		zap.String("name", name),
		zap.Strings("exports", artifact.Manifest.Exports),
	)
}

// Get retrieves an artifact by name.
func (r *Registry) Get(name string) (*Artifact, bool) {
	r.RLock()
	defer r.RUnlock()

	artifact, ok := r.artifacts[name]
	return artifact, ok
}

// LookupByExport finds artifacts declaring an export, ordered by name.
func (r *Registry) LookupByExport(export string) []*Artifact {
	r.RLock()
	defer r.RUnlock()

	artifacts := r.byExport[export]
	// Return copy to avoid race conditions
	result := make([]*Artifact, len(artifacts))
	copy(result, artifacts)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// List returns all registered artifacts ordered by name.
func (r *Registry) List() []*Artifact {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Artifact, 0, len(r.artifacts))
	for _, artifact := range r.artifacts {
		result = append(result, artifact)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes an artifact from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	r.unregister(name)
}

func (r *Registry) unregister(name string) {
	artifact, ok := r.artifacts[name]
	if !ok {
		return
	}

	for _, e := range artifact.Manifest.Exports {
		artifacts := r.byExport[e]
		for i, a := range artifacts {
			if a.Manifest.Name == name {
				r.byExport[e] = append(artifacts[:i:i], artifacts[i+1:]...)
				break
			}
		}
	}

	delete(r.artifacts, name)

	r.logger.Info("Artifact unregistered", zap.String("name", name))
}

// Count returns the number of registered artifacts.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.artifacts)
}
