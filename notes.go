package gatekeeper

// Notes is a namespaced key/value bag attached to a [Connection] or a
// [Transaction]. Handlers use it to leave facts for handlers that run later
// (a GeoIP code resolved at connect time, a policy query result recorded at
// MAIL time and re-inspected after DATA, …).
//
// Notes is not safe for concurrent use. It does not need to be: a
// connection's handlers never run concurrently with each other, and every
// Notes instance is owned by exactly one connection or transaction.
type Notes struct {
	m map[noteKey]any
}

type noteKey struct {
	ns, key string
}

func newNotes() *Notes {
	return &Notes{m: make(map[noteKey]any)}
}

// Set stores value under (namespace, key), replacing any previous value.
func (n *Notes) Set(namespace, key string, value any) {
	n.m[noteKey{namespace, key}] = value
}

// Get returns the value stored under (namespace, key).
func (n *Notes) Get(namespace, key string) (any, bool) {
	v, ok := n.m[noteKey{namespace, key}]
	return v, ok
}

// Delete removes the value stored under (namespace, key).
func (n *Notes) Delete(namespace, key string) {
	delete(n.m, noteKey{namespace, key})
}

// String returns the value stored under (namespace, key) if it is a string.
func (n *Notes) String(namespace, key string) (string, bool) {
	v, ok := n.m[noteKey{namespace, key}]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the value stored under (namespace, key) if it is an int.
func (n *Notes) Int(namespace, key string) (int, bool) {
	v, ok := n.m[noteKey{namespace, key}]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Bool returns the value stored under (namespace, key) if it is a bool.
func (n *Notes) Bool(namespace, key string) (bool, bool) {
	v, ok := n.m[noteKey{namespace, key}]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// Len returns the number of stored notes.
func (n *Notes) Len() int { return len(n.m) }

func (n *Notes) clear() {
	n.m = make(map[noteKey]any)
}
