package contrib

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/ShayCichocki/contribgate/internal/feature"
)

// Registry records the modules loaded during one run. A module ID is
// loaded at most once; later lookups return the first result, including
// a failed load.
type Registry struct {
	runID uuid.UUID

	mu      sync.Mutex
	modules map[string]*loaded
}

type loaded struct {
	objects []feature.Object
	err     error
}

// NewRegistry creates an empty registry for a run.
func NewRegistry(runID uuid.UUID) *Registry {
	return &Registry{runID: runID, modules: make(map[string]*loaded)}
}

// RunID returns the run the registry belongs to.
func (r *Registry) RunID() uuid.UUID { return r.runID }

// Load returns the objects for id, calling load only on first use.
func (r *Registry) Load(id string, load func() ([]feature.Object, error)) ([]feature.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.modules[id]; ok {
		return m.objects, m.err
	}
	objs, err := load()
	r.modules[id] = &loaded{objects: objs, err: err}
	return objs, err
}

// Loaded returns the IDs of every module seen so far, sorted.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.modules))
	for id := range r.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
