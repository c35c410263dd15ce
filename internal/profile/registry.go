package profile

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/insightdelivered/statement-ledger/internal/models"
)

//go:embed profiles/*.toml
var builtinFS embed.FS

// Registry indexes compiled profiles by name.
type Registry struct {
	profiles map[string]*Profile
}

// NewRegistry returns a registry holding the given profiles.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		r.Add(p)
	}
	return r
}

// Builtin returns a registry with the profiles shipped in the binary.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	if err := r.loadFS(builtinFS, "profiles"); err != nil {
		return nil, err
	}
	return r, nil
}

// Add registers p, replacing any profile with the same name.
func (r *Registry) Add(p *Profile) {
	r.profiles[strings.ToLower(p.Name)] = p
}

// LoadDir compiles every *.toml file in dir into the registry.
func (r *Registry) LoadDir(dir string) error {
	return r.loadFS(os.DirFS(dir), ".")
}

func (r *Registry) loadFS(fsys fs.FS, dir string) error {
	matches, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.toml")))
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}
	sort.Strings(matches)
	for _, name := range matches {
		f, err := fsys.Open(name)
		if err != nil {
			return fmt.Errorf("open profile %s: %w", name, err)
		}
		p, err := Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
		r.Add(p)
	}
	return nil
}

// Get looks a profile up by name, case-insensitively.
func (r *Registry) Get(name string) (*Profile, error) {
	p, ok := r.profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", models.ErrUnknownProfile, name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

// Names returns the registered profile names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Profiles returns the registered profiles sorted by name.
func (r *Registry) Profiles() []*Profile {
	out := make([]*Profile, 0, len(r.profiles))
	for _, n := range r.Names() {
		out = append(out, r.profiles[strings.ToLower(n)])
	}
	return out
}

// Detect tries to identify the institution from the statement text. The
// profile with the most matching detect markers wins; ties go to the first
// name in sorted order.
func (r *Registry) Detect(text string) (*Profile, error) {
	folded := Fold(text)
	var best *Profile
	bestHits := 0
	for _, p := range r.Profiles() {
		hits := 0
		for _, marker := range p.Detect {
			if m := Fold(marker); m != "" && strings.Contains(folded, m) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = p, hits
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: could not detect institution from statement content; please specify a profile", models.ErrUnknownProfile)
	}
	return best, nil
}
