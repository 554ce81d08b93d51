// Package contrib discovers contributed feature manifests and loads them
// into candidates.
package contrib

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/ShayCichocki/contribgate/internal/feature"
	"github.com/ShayCichocki/contribgate/internal/logging"
)

// Candidate is the single feature exported by one module.
type Candidate struct {
	Feature *feature.Feature
	// Module is the dotted module ID, e.g. contrib.bob.a_0.
	Module string
	// Path is the repo-relative manifest path.
	Path string
}

func (c Candidate) String() string { return c.Module }

// Options configures a Collector.
type Options struct {
	// RepoRoot is the absolute path of the checkout.
	RepoRoot string
	// ContribRoot is the repo-relative contribution subtree.
	ContribRoot string
	// Package is the module ID prefix for ContribRoot.
	Package string
	// Extension is the manifest file extension.
	Extension string
	// Transformers resolves transformer kinds. Defaults to the
	// process-wide registry.
	Transformers *feature.Registry
	Logger       logging.Logger
}

// Collector loads modules for one validation run. Each module is loaded at
// most once per Collector.
type Collector struct {
	opts     Options
	registry *Registry
	log      logging.Logger
}

// NewCollector creates a collector with a fresh run registry.
func NewCollector(opts Options) *Collector {
	if opts.Extension == "" {
		opts.Extension = ".yaml"
	}
	if opts.Package == "" {
		opts.Package = path.Base(filepath.ToSlash(opts.ContribRoot))
	}
	if opts.Transformers == nil {
		opts.Transformers = feature.DefaultRegistry()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	reg := NewRegistry(uuid.New())
	return &Collector{
		opts:     opts,
		registry: reg,
		log:      logging.With(log, "run", reg.RunID().String()),
	}
}

// RunID identifies the registry this collector loads into.
func (c *Collector) RunID() uuid.UUID { return c.registry.RunID() }

// Registry returns the run's module registry.
func (c *Collector) Registry() *Registry { return c.registry }

// Collect walks the contribution subtree and returns one candidate per
// module that exports exactly one feature, in lexical path order.
// A missing subtree yields no candidates.
func (c *Collector) Collect(ctx context.Context) ([]Candidate, error) {
	root := filepath.Join(c.opts.RepoRoot, filepath.FromSlash(c.opts.ContribRoot))
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		c.log.Debug("contribution root does not exist", "path", root)
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			c.log.Warn("skipping unreadable path", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != c.opts.Extension {
			return nil
		}
		rel, err := filepath.Rel(c.opts.RepoRoot, p)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return c.CollectPaths(ctx, paths)
}

// CollectPaths loads only the given repo-relative manifest paths.
func (c *Collector) CollectPaths(ctx context.Context, paths []string) ([]Candidate, error) {
	var out []Candidate
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cand, ok := c.collectModule(p); ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

func (c *Collector) collectModule(relPath string) (Candidate, bool) {
	id := c.ModuleID(relPath)
	objs, err := c.registry.Load(id, func() ([]feature.Object, error) {
		return c.load(relPath)
	})
	if err != nil {
		c.log.Warn("failed to load module", "module", id, "path", relPath, "error", err)
		return Candidate{}, false
	}

	var found []*feature.Feature
	for _, o := range objs {
		if feature.IsFeature(o.Value) {
			found = append(found, o.Value.(*feature.Feature))
		}
	}

	switch len(found) {
	case 0:
		c.log.Debug("no feature found in module", "module", id)
		return Candidate{}, false
	case 1:
		f := found[0]
		f.Source = id
		return Candidate{Feature: f, Module: id, Path: relPath}, true
	default:
		c.log.Warn("found too many features in module, skipping", "module", id, "count", len(found))
		c.log.Debug("ambiguous module contents", "module", id, "features", spew.Sdump(found))
		return Candidate{}, false
	}
}

// load reads and decodes one module. Panics while building transformers
// are converted to errors.
func (c *Collector) load(relPath string) (objs []feature.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			objs, err = nil, fmt.Errorf("panic while loading: %v", r)
		}
	}()

	f, err := os.Open(filepath.Join(c.opts.RepoRoot, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return feature.DecodeAll(f, c.opts.Transformers)
}

// ModuleID maps a repo-relative manifest path to its dotted module ID.
// Paths under the contribution root are prefixed with the package name;
// other paths use their full dotted path.
func (c *Collector) ModuleID(relPath string) string {
	p := strings.TrimSuffix(path.Clean(filepath.ToSlash(relPath)), c.opts.Extension)
	root := strings.Trim(path.Clean("/"+filepath.ToSlash(c.opts.ContribRoot)), "/")
	if root != "" && strings.HasPrefix(p, root+"/") {
		p = c.opts.Package + "/" + strings.TrimPrefix(p, root+"/")
	}
	return strings.ReplaceAll(p, "/", ".")
}
