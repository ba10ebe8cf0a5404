package speakers

// ChangeKind describes what an Upsert did.
type ChangeKind int

const (
	// Added means the record was appended.
	Added ChangeKind = iota
	// Updated means an existing record was replaced in place.
	Updated
)

// String returns the kind name.
func (k ChangeKind) String() string {
	switch k {
	case Added:
		return "added"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Change is passed to hooks after every Upsert. Before is nil for Added.
type Change struct {
	Kind   ChangeKind
	Before *Speaker
	After  *Speaker
}

// ChangeHook observes store mutations. Hooks run synchronously after the
// store lock is released and must not block.
type ChangeHook func(Change)
