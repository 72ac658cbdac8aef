// Package backendtest provides an in-memory backend for exercising scans and
// commands without touching the filesystem.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"

	"vinsly/internal/resource"
)

// Home is the home directory the fake places global resources under.
const Home = "/home/user"

var ErrMissing = errors.New("backendtest: no such resource")

const globalRoot = "global"

type Fake struct {
	mu      sync.Mutex
	global  []resource.Raw
	dirs    map[string][]resource.Raw
	fail    map[string]error
	gates   map[string]chan struct{}
	entered chan string

	calls   []string
	writes  []resource.Draft
	deletes []resource.Resource

	WriteErr  error
	DeleteErr error
}

func New() *Fake {
	return &Fake{
		dirs:    make(map[string][]resource.Raw),
		fail:    make(map[string]error),
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 64),
	}
}

// Raw builds a file-backed raw resource of kind under root. An empty root
// means the global scope.
func Raw(kind resource.Kind, root, name string) resource.Raw {
	scope := resource.ScopeProject
	if root == "" {
		root, scope = Home, resource.ScopeGlobal
	}
	return resource.Raw{
		Kind:    kind,
		Scope:   scope,
		Name:    name,
		Path:    path.Join(root, ".claude", string(kind)+"s", name+".md"),
		Content: "# " + name,
	}
}

func Agent(root, name string) resource.Raw {
	return Raw(resource.KindAgent, root, name)
}

// Parse is a minimal parser for raws produced by this package.
func Parse(raw resource.Raw) (resource.Resource, error) {
	if raw.Name == "" {
		return resource.Resource{}, fmt.Errorf("backendtest: raw without name")
	}
	return resource.Resource{
		Kind:    raw.Kind,
		Scope:   raw.Scope,
		Name:    raw.Name,
		Path:    raw.Path,
		Source:  raw.Source,
		Content: raw.Content,
	}, nil
}

func (f *Fake) SetGlobal(raws ...resource.Raw) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.global = raws
}

func (f *Fake) SetDir(dir string, raws ...resource.Raw) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[resource.NormalizeRoot(dir)] = raws
}

// Fail makes listings of dir return err. An empty dir targets the global
// listing; a nil err clears the failure.
func (f *Fake) Fail(dir string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := rootKey(dir)
	if err == nil {
		delete(f.fail, key)
		return
	}
	f.fail[key] = err
}

// Block holds listings of dir until the returned release is called. An empty
// dir targets the global listing.
func (f *Fake) Block(dir string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[rootKey(dir)] = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, rootKey(dir))
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Entered receives the root of every listing call as it starts.
func (f *Fake) Entered() <-chan string {
	return f.entered
}

func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Writes() []resource.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]resource.Draft(nil), f.writes...)
}

func (f *Fake) Deletes() []resource.Resource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]resource.Resource(nil), f.deletes...)
}

func rootKey(dir string) string {
	if dir == "" {
		return globalRoot
	}
	return resource.NormalizeRoot(dir)
}

func (f *Fake) list(key string) ([]resource.Raw, error) {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	gate := f.gates[key]
	f.mu.Unlock()

	select {
	case f.entered <- key:
	default:
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[key]; err != nil {
		return nil, err
	}
	if key == globalRoot {
		return append([]resource.Raw(nil), f.global...), nil
	}
	return append([]resource.Raw(nil), f.dirs[key]...), nil
}

func (f *Fake) ListGlobal(_ context.Context) ([]resource.Raw, error) {
	return f.list(globalRoot)
}

func (f *Fake) ListForProject(_ context.Context, p string) ([]resource.Raw, error) {
	return f.list(rootKey(p))
}

func (f *Fake) ListForDirectory(_ context.Context, dir string) ([]resource.Raw, error) {
	return f.list(rootKey(dir))
}

// Write records the draft and makes it visible to later listings.
func (f *Fake) Write(_ context.Context, d resource.Draft) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteErr != nil {
		return "", f.WriteErr
	}
	if err := resource.ValidateName(d.Name); err != nil {
		return "", err
	}
	f.writes = append(f.writes, d)

	root := ""
	if d.Scope == resource.ScopeProject {
		root = d.ProjectPath
	}
	raw := Raw(d.Kind, root, d.Name)
	raw.Content = d.Content

	if root == "" {
		f.global = upsertRaw(f.global, raw)
	} else {
		key := rootKey(root)
		f.dirs[key] = upsertRaw(f.dirs[key], raw)
	}
	return raw.Path, nil
}

func (f *Fake) Delete(_ context.Context, r resource.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.deletes = append(f.deletes, r)

	var ok bool
	if r.Scope == resource.ScopeGlobal {
		f.global, ok = dropRaw(f.global, r.Locator())
	} else {
		key := rootKey(resource.ProjectRoot(r.Locator()))
		f.dirs[key], ok = dropRaw(f.dirs[key], r.Locator())
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissing, r.Locator())
	}
	return nil
}

// Paths lists every path currently known to the fake, sorted.
func (f *Fake) Paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.global {
		out = append(out, r.Path)
	}
	for _, raws := range f.dirs {
		for _, r := range raws {
			out = append(out, r.Path)
		}
	}
	sort.Strings(out)
	return out
}

func upsertRaw(raws []resource.Raw, raw resource.Raw) []resource.Raw {
	for i := range raws {
		if raws[i].Path == raw.Path {
			raws[i] = raw
			return raws
		}
	}
	return append(raws, raw)
}

func dropRaw(raws []resource.Raw, p string) ([]resource.Raw, bool) {
	for i := range raws {
		if raws[i].Path == p {
			return append(raws[:i:i], raws[i+1:]...), true
		}
	}
	return raws, false
}
