package entity

// Visitor is a function invoked for each namespace object that matches a
// particular type. The return value controls whether the children of this
// object should also be visited.
type Visitor func(depth int, obj *Object) (keepRecursing bool)

// Visit descends a scope hierarchy and invokes visitorFn for each object
// that matches objType. TypeAny works as a wildcard allowing the visitor to
// inspect all objects in the tree.
func Visit(depth int, obj *Object, objType ObjectType, visitorFn Visitor) bool {
	if objType == TypeAny || obj.Type == objType {
		// If the visitor returned false we should not visit the children
		if !visitorFn(depth, obj) {
			return false
		}
	}

	// The child list may be modified by the visitor (e.g. when it runs
	// methods that create objects) so iterate over a snapshot.
	children := append([]*Object(nil), obj.children...)
	for _, child := range children {
		_ = Visit(depth+1, child, objType, visitorFn)
	}

	return true
}
