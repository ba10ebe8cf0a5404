package speakers

import (
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/agentstation/speakerpool/pkg/errors"
)

// Store is the ordered canonical collection of speakers.
//
// Lookups return copies; Upsert is the only way to change a record.
type Store struct {
	mu       sync.RWMutex
	records  []*Speaker
	byID     map[string]int
	byUnique map[string]int
	hooks    []ChangeHook
	newID    func() (string, error)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithUniqueIDSource overrides the unique id generator, mainly for tests.
func WithUniqueIDSource(fn func() (string, error)) StoreOption {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithChangeHook registers a hook at construction time.
func WithChangeHook(hook ChangeHook) StoreOption {
	return func(s *Store) {
		if hook != nil {
			s.hooks = append(s.hooks, hook)
		}
	}
}

// NewStore creates a store holding copies of the given records in order.
func NewStore(records []Speaker, opts ...StoreOption) *Store {
	s := &Store{
		records: make([]*Speaker, 0, len(records)),
		newID:   GenerateUniqueID,
	}
	for i := range records {
		s.records = append(s.records, records[i].Copy())
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reindex()
	return s
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// All returns copies of every record in canonical order.
func (s *Store) All() []Speaker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Speaker, len(s.records))
	for i, r := range s.records {
		out[i] = *r.Copy()
	}
	return out
}

// FindByID returns the record with the given internal id.
func (s *Store) FindByID(id string) (*Speaker, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.byID[id]; ok {
		return s.records[i].Copy(), true
	}
	return nil, false
}

// FindByUniqueID returns the record with the given unique id.
func (s *Store) FindByUniqueID(uniqueID string) (*Speaker, bool) {
	if uniqueID == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i, ok := s.byUnique[uniqueID]; ok {
		return s.records[i].Copy(), true
	}
	return nil, false
}

// FindByName returns the first record whose name matches exactly, optionally
// ignoring case.
func (s *Store) FindByName(name string, caseInsensitive bool) (*Speaker, bool) {
	if name == "" {
		return nil, false
	}
	if !caseInsensitive {
		return s.find(func(r *Speaker) bool { return r.Name == name })
	}
	want := Fold(name)
	return s.find(func(r *Speaker) bool { return Fold(r.Name) == want })
}

// FindByEmail returns the first record whose email address matches, ignoring case.
func (s *Store) FindByEmail(email string) (*Speaker, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, false
	}
	want := Fold(email)
	return s.find(func(r *Speaker) bool {
		return r.EmailAddress != "" && Fold(strings.TrimSpace(r.EmailAddress)) == want
	})
}

func (s *Store) find(match func(*Speaker) bool) (*Speaker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if match(r) {
			return r.Copy(), true
		}
	}
	return nil, false
}

// Upsert replaces the record with the same id in place, or appends it.
func (s *Store) Upsert(record *Speaker) (Change, error) {
	if record == nil {
		return Change{}, errors.NewValidationError("record", nil, "cannot be nil")
	}
	if record.ID == "" {
		return Change{}, errors.NewValidationError("id", record.ID, "record has no id")
	}

	s.mu.Lock()
	change := Change{After: record.Copy()}
	if i, ok := s.byID[record.ID]; ok {
		change.Kind = Updated
		change.Before = s.records[i]
		s.records[i] = record.Copy()
		if change.Before.UniqueID != record.UniqueID {
			s.reindex()
		}
	} else {
		change.Kind = Added
		s.records = append(s.records, record.Copy())
		s.index(len(s.records) - 1)
	}
	hooks := append([]ChangeHook(nil), s.hooks...)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(change)
	}
	return change, nil
}

// OnChange registers a hook fired after every Upsert.
func (s *Store) OnChange(hook ChangeHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// NextID returns speakerN where N is one past the highest numeric suffix in use.
func (s *Store) NextID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	for _, r := range s.records {
		suffix, ok := strings.CutPrefix(r.ID, idPrefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return idPrefix + strconv.Itoa(highest+1)
}

// NewUniqueID returns a fresh unique id not used by any record.
func (s *Store) NewUniqueID() (string, error) {
	for i := 0; i < maxUniqueIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		s.mu.RLock()
		_, taken := s.byUnique[id]
		s.mu.RUnlock()
		if !taken {
			return id, nil
		}
	}
	return "", errors.NewResourceError("generate", "uniqueId", "", errors.ErrAlreadyExists)
}

// reindex rebuilds both lookup maps. Callers hold the write lock.
func (s *Store) reindex() {
	s.byID = make(map[string]int, len(s.records))
	s.byUnique = make(map[string]int, len(s.records))
	for i := range s.records {
		s.index(i)
	}
}

// index adds record i to the lookup maps. The first record holding a key wins.
func (s *Store) index(i int) {
	r := s.records[i]
	if _, ok := s.byID[r.ID]; !ok && r.ID != "" {
		s.byID[r.ID] = i
	}
	if _, ok := s.byUnique[r.UniqueID]; !ok && r.UniqueID != "" {
		s.byUnique[r.UniqueID] = i
	}
}

// Fold case-folds s for identity comparisons.
func Fold(s string) string {
	return cases.Fold().String(s)
}
