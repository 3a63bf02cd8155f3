package transform

import "sort"

// Metadata is everything the passes learned about a tree. Slices keep
// first-use order so generation is deterministic; maps never appear here.
type Metadata struct {
	// Helpers lists the runtime helper names the generated code will call,
	// in order of first use.
	Helpers []string

	// IsAsync is set when the body awaits or iterates asynchronously.
	IsAsync bool

	// Slots lists slot names in order of first use. The default slot is
	// the empty string.
	Slots []string

	// Captures holds the free variables of each fragment, in order of
	// fragment appearance.
	Captures []FragmentCapture
}

// FragmentCapture names the variables a fragment reads from its enclosing
// scope. Vars is sorted so hoisted signatures are stable.
type FragmentCapture struct {
	Fragment string
	Vars     []string
}

func NewMetadata() *Metadata {
	return &Metadata{}
}

func (m *Metadata) AddHelper(name string) {
	for _, h := range m.Helpers {
		if h == name {
			return
		}
	}
	m.Helpers = append(m.Helpers, name)
}

func (m *Metadata) HasHelper(name string) bool {
	for _, h := range m.Helpers {
		if h == name {
			return true
		}
	}
	return false
}

func (m *Metadata) AddSlot(name string) {
	for _, s := range m.Slots {
		if s == name {
			return
		}
	}
	m.Slots = append(m.Slots, name)
}

// HasDefaultSlot reports whether caller children are rendered anywhere.
func (m *Metadata) HasDefaultSlot() bool {
	for _, s := range m.Slots {
		if s == "" {
			return true
		}
	}
	return false
}

// NamedSlots returns the non-default slot names sorted alphabetically, the
// order they take in the generated signature.
func (m *Metadata) NamedSlots() []string {
	var named []string
	for _, s := range m.Slots {
		if s != "" {
			named = append(named, s)
		}
	}
	sort.Strings(named)
	return named
}

// CapturesFor returns the capture list for a fragment, or nil when the
// fragment closes over nothing.
func (m *Metadata) CapturesFor(fragment string) []string {
	for _, c := range m.Captures {
		if c.Fragment == fragment {
			return c.Vars
		}
	}
	return nil
}
