package entity

import (
	"amlkit/kernel"
	"sync"
)

var (
	errNotFound      = &kernel.Error{Module: "acpi_aml_entity", Message: "namespace object not found", Kind: kernel.KindNotFound}
	errAlreadyExists = &kernel.Error{Module: "acpi_aml_entity", Message: "namespace object already exists", Kind: kernel.KindMalformedData}
	errNotContainer  = &kernel.Error{Module: "acpi_aml_entity", Message: "object cannot contain named children", Kind: kernel.KindTypeMismatch}
	errAlreadyLinked = &kernel.Error{Module: "acpi_aml_entity", Message: "object is already linked in the namespace", Kind: kernel.KindInternal}
	errRegionInUse   = &kernel.Error{Module: "acpi_aml_entity", Message: "operation region is still referenced by field units", Kind: kernel.KindInternal}
	errDetachRoot    = &kernel.Error{Module: "acpi_aml_entity", Message: "cannot detach the namespace root", Kind: kernel.KindInternal}

	// predefinedScopes lists the scopes that are always present under
	// the namespace root.
	predefinedScopes = []struct {
		name string
		typ  ObjectType
	}{
		{"_GPE", TypeScope},
		{"_PR_", TypeScope},
		{"_SB_", TypeDevice},
		{"_SI_", TypeScope},
		{"_TZ_", TypeScope},
	}
)

// IsNotFound returns true if err reports a path that could not be resolved.
func IsNotFound(err *kernel.Error) bool {
	return err != nil && err.Root() == errNotFound
}

// Namespace is a tree of named objects rooted at `\`.
type Namespace struct {
	mu   sync.RWMutex
	root *Object
}

// NewNamespace returns a namespace containing the root object and the
// predefined scopes.
func NewNamespace() *Namespace {
	ns := &Namespace{
		root: &Object{Type: TypeScope, name: `\`, isRoot: true},
	}
	ns.root.AddRef()

	for _, scope := range predefinedScopes {
		_ = ns.Attach(ns.root, scope.name, New(scope.typ))
	}

	return ns
}

// Root returns the namespace root.
func (ns *Namespace) Root() *Object { return ns.root }

// Attach links obj as a child of parent under the supplied name. Linking
// adds a reference to obj.
func (ns *Namespace) Attach(parent *Object, name string, obj *Object) *kernel.Error {
	if !ValidNameSeg(name) {
		return errInvalidPath.WithDetail(name)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	parent = parent.Deref()
	switch {
	case obj.Linked():
		return errAlreadyLinked.WithDetail(obj.Path())
	case !parent.Type.IsContainer():
		return errNotContainer.WithDetail(parent.Path())
	case parent.Child(name) != nil:
		return errAlreadyExists.WithDetail(joinPath(parent, name))
	}

	obj.name = name
	obj.parent = parent
	parent.children = append(parent.children, obj)
	obj.AddRef()

	if obj.Type == TypeFieldUnit {
		obj.Field.bindRegion()
	}
	return nil
}

// Detach unlinks obj and any linked descendants from the namespace and drops
// the reference held by the link. Objects are detached bottom-up in reverse
// insertion order. Detaching an operation region while field units that
// refer to it are still linked fails.
func (ns *Namespace) Detach(obj *Object) *kernel.Error {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	return ns.detach(obj)
}

func (ns *Namespace) detach(obj *Object) *kernel.Error {
	switch {
	case obj.isRoot:
		return errDetachRoot
	case obj.parent == nil:
		return nil
	case obj.Type == TypeRegion && obj.Region.Users() > 0:
		return errRegionInUse.WithDetail(obj.Path())
	}

	var firstErr *kernel.Error
	for i := len(obj.children) - 1; i >= 0; i-- {
		if err := ns.detach(obj.children[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	parent := obj.parent
	for index, child := range parent.children {
		if child == obj {
			parent.children = append(parent.children[:index:index], parent.children[index+1:]...)
			break
		}
	}
	obj.parent = nil

	if obj.Type == TypeFieldUnit {
		obj.Field.unbindRegion()
	}

	if err := obj.Release(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// Find resolves path relative to scope using the namespace search rules.
// If derefAlias is set, alias objects are followed to their target. Find does
// not add a reference to the returned object.
func (ns *Namespace) Find(scope *Object, path Path, derefAlias bool) *Object {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	obj := FindInScope(scope, ns.root, path)
	if derefAlias {
		obj = obj.Deref()
	}
	return obj
}

// FindParent resolves the scope that a new object declared with path at
// scope should be attached to and returns it together with the new object's
// name.
func (ns *Namespace) FindParent(scope *Object, path Path) (*Object, string, *kernel.Error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	parent, name := ResolveScopedPath(scope, ns.root, path)
	if parent == nil {
		return nil, "", errNotFound.WithDetail(path.String())
	}
	return parent.Deref(), name, nil
}

// Lookup resolves the textual path relative to scope (or the root if scope
// is nil). The returned object carries a new reference that the caller must
// drop with Release.
func (ns *Namespace) Lookup(scope *Object, path string) (*Object, *kernel.Error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	obj := ns.Find(scope, p, true)
	if obj == nil {
		return nil, errNotFound.WithDetail(path)
	}

	obj.AddRef()
	return obj, nil
}

// ResolveUnresolved resolves an UnresolvedName placeholder. Other objects are
// returned unchanged.
func (ns *Namespace) ResolveUnresolved(obj *Object) (*Object, *kernel.Error) {
	if obj == nil || obj.Type != TypeUnresolvedName {
		return obj, nil
	}

	target := ns.Find(obj.Unresolved.Scope, obj.Unresolved.Path, true)
	if target == nil {
		return nil, errNotFound.WithDetail(obj.Unresolved.Path.String())
	}
	return target, nil
}

// Visit walks the whole namespace depth-first. The namespace lock is not
// held while fn runs so fn may attach or detach objects.
func (ns *Namespace) Visit(fn Visitor) {
	Visit(0, ns.root, TypeAny, fn)
}

// Stats reports the number of linked objects per object type.
type Stats struct {
	Total  int
	ByType map[ObjectType]int
}

// Stats walks the namespace and counts the linked objects by type. The root
// is not included.
func (ns *Namespace) Stats() Stats {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	stats := Stats{ByType: make(map[ObjectType]int)}
	Visit(0, ns.root, TypeAny, func(_ int, obj *Object) bool {
		if !obj.isRoot {
			stats.Total++
			stats.ByType[obj.Type]++
		}
		return true
	})
	return stats
}

// Tracker records the objects created by a method invocation or a definition
// block so they can be torn down together. Each tracked object holds one
// reference on behalf of the tracker.
type Tracker struct {
	objects []*Object
}

// Track appends obj to the tracker.
func (t *Tracker) Track(obj *Object) {
	obj.AddRef()
	obj.tracker = t
	t.objects = append(t.objects, obj)
}

// Len returns the number of tracked objects.
func (t *Tracker) Len() int { return len(t.objects) }

// Objects returns the tracked objects in creation order.
func (t *Tracker) Objects() []*Object { return t.objects }

// Teardown unlinks every object tracked by t in reverse creation order and
// drops the tracker's references. Teardown continues past errors and
// returns the first one encountered.
func (ns *Namespace) Teardown(t *Tracker) *kernel.Error {
	var firstErr *kernel.Error

	for i := len(t.objects) - 1; i >= 0; i-- {
		obj := t.objects[i]
		if err := ns.Detach(obj); err != nil && firstErr == nil {
			firstErr = err
		}
		obj.tracker = nil
		if err := obj.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	t.objects = nil

	return firstErr
}

func joinPath(parent *Object, name string) string {
	if parent.isRoot {
		return `\` + name
	}
	return parent.Path() + "." + name
}
