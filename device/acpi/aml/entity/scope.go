package entity

// FindInScope attempts to find an object with the given path using the rules
// specified in page 252 of the ACPI 6.2 spec:
//
// There are two types of namespace paths: an absolute namespace path (that is,
// one that starts with a ‘\’ prefix), and a relative namespace path (that is,
// one that is relative to the current namespace). The namespace search rules
// discussed above, only apply to single NameSeg paths, which is a relative
// namespace path. For those relative name paths that contain multiple NameSegs
// or Parent Prefixes, ‘^’, the search rules do not apply. If the search rules
// do not apply to a relative namespace path, the namespace object is looked up
// relative to the current namespace
//
// Alias objects are returned as-is; callers use Deref to reach the target.
func FindInScope(curScope, rootScope *Object, path Path) *Object {
	if curScope == nil {
		curScope = rootScope
	}

	switch {
	case path.Root:
		return findRelativeToScope(rootScope, path.Segments)
	case path.Parents > 0:
		for i := 0; i < path.Parents; i++ {
			curScope = curScope.Parent()

			// No parent to visit
			if curScope == nil {
				return nil
			}
		}
		return findRelativeToScope(curScope, path.Segments)
	case len(path.Segments) == 1:
		// We can apply the search rules described by the spec
		for s := curScope; s != nil; s = s.Parent() {
			if child := s.Child(path.Segments[0]); child != nil {
				return child
			}
		}
		return nil
	case len(path.Segments) == 0:
		// NullName
		return nil
	default:
		return findRelativeToScope(curScope, path.Segments)
	}
}

// ResolveScopedPath examines a path and attempts to break it down into a
// parent and child segment. The parent is looked up relative to curScope
// without applying the search rules. If the parent is found then the function
// returns back the parent object and the name of the child that should be
// appended to it. If the lookup fails then the function returns nil, "".
func ResolveScopedPath(curScope, rootScope *Object, path Path) (parent *Object, name string) {
	if len(path.Segments) == 0 {
		return nil, ""
	}

	if curScope == nil {
		curScope = rootScope
	}

	base := curScope
	if path.Root {
		base = rootScope
	}

	for i := 0; i < path.Parents; i++ {
		if base = base.Parent(); base == nil {
			return nil, ""
		}
	}

	parent = findRelativeToScope(base, path.Segments[:len(path.Segments)-1])
	if parent == nil {
		return nil, ""
	}

	return parent, path.Last()
}

// findRelativeToScope returns the object referenced by the list of segments
// relative to the provided scope. Intermediate segments that refer to aliases
// are followed. An empty segment list matches the scope itself.
func findRelativeToScope(scope *Object, segments []string) *Object {
	cur := scope
	for _, seg := range segments {
		if cur = cur.Deref().Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}
