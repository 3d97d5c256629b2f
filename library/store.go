package library

import "fmt"

// Store is the authoritative in-memory set of items and members. Lookups are
// by id; listings follow insertion order so snapshots and reports come out
// deterministic. The store does no I/O and is only mutated through the
// LibraryManager's operations.
type Store struct {
	items   map[string]*Item
	members map[string]*Member

	itemOrder   []string
	memberOrder []string

	nextItemID   int
	nextMemberID int
}

// NewStore returns an empty store with id counters starting at 1.
func NewStore() *Store {
	return &Store{
		items:        make(map[string]*Item),
		members:      make(map[string]*Member),
		nextItemID:   1,
		nextMemberID: 1,
	}
}

// NextItemID mints the next item identifier ("I1", "I2", ...).
func (s *Store) NextItemID() string {
	id := fmt.Sprintf("I%d", s.nextItemID)
	s.nextItemID++
	return id
}

// NextMemberID mints the next member identifier ("M1", "M2", ...).
func (s *Store) NextMemberID() string {
	id := fmt.Sprintf("M%d", s.nextMemberID)
	s.nextMemberID++
	return id
}

// AddItem registers a new item; the id must be unused.
func (s *Store) AddItem(it *Item) error {
	if _, exists := s.items[it.ID]; exists {
		return fmt.Errorf("item %s already exists", it.ID)
	}
	s.items[it.ID] = it
	s.itemOrder = append(s.itemOrder, it.ID)
	return nil
}

// AddMember registers a new member; the id must be unused.
func (s *Store) AddMember(m *Member) error {
	if _, exists := s.members[m.ID]; exists {
		return fmt.Errorf("member %s already exists", m.ID)
	}
	s.members[m.ID] = m
	s.memberOrder = append(s.memberOrder, m.ID)
	return nil
}

// GetItem looks up an item by id.
func (s *Store) GetItem(id string) (*Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// GetMember looks up a member by id.
func (s *Store) GetMember(id string) (*Member, bool) {
	m, ok := s.members[id]
	return m, ok
}

// Items returns every item in insertion order.
func (s *Store) Items() []*Item {
	out := make([]*Item, 0, len(s.itemOrder))
	for _, id := range s.itemOrder {
		out = append(out, s.items[id])
	}
	return out
}

// Members returns every member in insertion order.
func (s *Store) Members() []*Member {
	out := make([]*Member, 0, len(s.memberOrder))
	for _, id := range s.memberOrder {
		out = append(out, s.members[id])
	}
	return out
}

// ItemFilter selects items whose set fields are equal to the given values.
// Nil fields match anything.
type ItemFilter struct {
	Title   *string
	Creator *string
	Code    *string
	Year    *int
	Status  *ItemStatus
}

func (f ItemFilter) matches(it *Item) bool {
	if f.Title != nil && it.Title != *f.Title {
		return false
	}
	if f.Creator != nil && it.Creator != *f.Creator {
		return false
	}
	if f.Code != nil && it.Code != *f.Code {
		return false
	}
	if f.Year != nil && it.Year != *f.Year {
		return false
	}
	if f.Status != nil && it.Status != *f.Status {
		return false
	}
	return true
}

// FindItems returns all items matching the filter, in insertion order.
func (s *Store) FindItems(f ItemFilter) []*Item {
	var out []*Item
	for _, id := range s.itemOrder {
		if f.matches(s.items[id]) {
			out = append(out, s.items[id])
		}
	}
	return out
}

// MemberFilter selects members whose set fields are equal to the given
// values. Nil fields match anything.
type MemberFilter struct {
	Name    *string
	Contact *string
	Role    *Role
}

func (f MemberFilter) matches(m *Member) bool {
	if f.Name != nil && m.Name != *f.Name {
		return false
	}
	if f.Contact != nil && m.Contact != *f.Contact {
		return false
	}
	if f.Role != nil && m.Role != *f.Role {
		return false
	}
	return true
}

// FindMembers returns all members matching the filter, in insertion order.
func (s *Store) FindMembers(f MemberFilter) []*Member {
	var out []*Member
	for _, id := range s.memberOrder {
		if f.matches(s.members[id]) {
			out = append(out, s.members[id])
		}
	}
	return out
}

// Snapshot deep-copies the full store state for serialisation. The copy
// shares nothing with the live records.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Items:        make([]*Item, 0, len(s.itemOrder)),
		Members:      make([]*Member, 0, len(s.memberOrder)),
		NextItemID:   s.nextItemID,
		NextMemberID: s.nextMemberID,
	}
	for _, id := range s.itemOrder {
		snap.Items = append(snap.Items, copyItem(s.items[id]))
	}
	for _, id := range s.memberOrder {
		snap.Members = append(snap.Members, copyMember(s.members[id]))
	}
	return snap
}

// Restore replaces the entire store contents with the snapshot.
func (s *Store) Restore(snap Snapshot) {
	s.items = make(map[string]*Item, len(snap.Items))
	s.members = make(map[string]*Member, len(snap.Members))
	s.itemOrder = s.itemOrder[:0]
	s.memberOrder = s.memberOrder[:0]

	for _, it := range snap.Items {
		c := copyItem(it)
		s.items[c.ID] = c
		s.itemOrder = append(s.itemOrder, c.ID)
	}
	for _, m := range snap.Members {
		c := copyMember(m)
		s.members[c.ID] = c
		s.memberOrder = append(s.memberOrder, c.ID)
	}
	s.nextItemID = snap.NextItemID
	if s.nextItemID < 1 {
		s.nextItemID = 1
	}
	s.nextMemberID = snap.NextMemberID
	if s.nextMemberID < 1 {
		s.nextMemberID = 1
	}
}

func copyItem(it *Item) *Item {
	c := *it
	if it.DueAt != nil {
		due := *it.DueAt
		c.DueAt = &due
	}
	c.History = make([]LoanRecord, len(it.History))
	for i, rec := range it.History {
		c.History[i] = rec
		if rec.ReturnedAt != nil {
			ret := *rec.ReturnedAt
			c.History[i].ReturnedAt = &ret
		}
	}
	return &c
}

func copyMember(m *Member) *Member {
	c := *m
	c.Borrowed = append([]string(nil), m.Borrowed...)
	c.Reserved = append([]string(nil), m.Reserved...)
	return &c
}
