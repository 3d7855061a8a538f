package catalogs

import "fmt"

// Ref identifies one entry: catalog tag plus index within that catalog.
// "Floor 2" and "Buildings 2" are unrelated entries.
type Ref struct {
	Tag   Tag
	Index int
}

func (r Ref) Resolve() (Entry, error) { return Resolve(r) }

func (r Ref) String() string {
	if e, err := Resolve(r); err == nil {
		return e.Name
	}
	return fmt.Sprintf("%v[%d]", r.Tag, r.Index)
}

// Resolve maps a reference to its catalog entry.
func Resolve(r Ref) (Entry, error) {
	if !r.Tag.Valid() {
		return Entry{}, fmt.Errorf("%w: %v", ErrUnresolvedReference, r.Tag)
	}
	return At(r.Tag, r.Index)
}

// MustResolve panics when r does not name an entry. Callers only hold refs
// built from a bounded cursor or decoded by name, so a failure here is a bug.
func MustResolve(r Ref) Entry {
	e, err := Resolve(r)
	if err != nil {
		panic(err)
	}
	return e
}

// MarshalText encodes the ref as its entry name, which is the persisted kind.
func (r Ref) MarshalText() ([]byte, error) {
	e, err := Resolve(r)
	if err != nil {
		return nil, err
	}
	return []byte(e.Name), nil
}

func (r *Ref) UnmarshalText(b []byte) error {
	ref, ok := Lookup(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrUnresolvedReference, string(b))
	}
	*r = ref
	return nil
}
