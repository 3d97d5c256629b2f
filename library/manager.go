package library

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// LibraryManager is the lending state machine: it owns the in-memory store,
// validates every transition, and writes the snapshot after each successful
// mutation. A failed operation mutates nothing and saves nothing.
type LibraryManager struct {
	store *Store
	db    *Database
	cfg   Config

	// now is swappable in tests; production uses the wall clock.
	now func() time.Time
}

// NewLibraryManager opens the snapshot database at cfg.DBPath and restores
// the store from it. A snapshot that exists but cannot be read is a startup
// error, not an empty library.
func NewLibraryManager(cfg Config) (*LibraryManager, error) {
	db, err := NewDatabase(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	snap, err := db.Load()
	if err != nil {
		db.Close()
		return nil, err
	}
	store := NewStore()
	store.Restore(snap)
	return &LibraryManager{store: store, db: db, cfg: cfg, now: time.Now}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// persist writes the current store to disk. When it fails after a mutation
// the in-memory state is ahead of the durable one; the error reports that
// window, it does not roll anything back.
func (lm *LibraryManager) persist() error {
	return lm.db.Save(lm.store.Snapshot())
}

// ------------------ Catalog management ------------------

// AddItem registers a new available item. Catalog management is privileged,
// so the acting member's role is validated here rather than trusted to the
// presentation layer.
func (lm *LibraryManager) AddItem(acting Role, title, creator, code string, year int) (*Item, error) {
	if !acting.Privileged() {
		return nil, fmt.Errorf("%w: add item requires staff or admin", ErrUnauthorized)
	}
	it := &Item{
		ID:      lm.store.NextItemID(),
		Title:   title,
		Creator: creator,
		Code:    code,
		Year:    year,
		Status:  StatusAvailable,
	}
	if err := lm.store.AddItem(it); err != nil {
		return nil, err
	}
	if err := lm.persist(); err != nil {
		return nil, err
	}
	return it, nil
}

// ArchiveItem takes an item out of circulation. Only an available item can
// be archived; anything on loan or reserved still belongs to a member.
func (lm *LibraryManager) ArchiveItem(acting Role, itemID string) error {
	if !acting.Privileged() {
		return fmt.Errorf("%w: archive item requires staff or admin", ErrUnauthorized)
	}
	it, ok := lm.store.GetItem(itemID)
	if !ok {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if it.Status != StatusAvailable {
		return fmt.Errorf("%w: item %s is %s, not available", ErrInvalidState, itemID, it.Status)
	}
	it.Status = StatusArchived
	return lm.persist()
}

// ------------------ Membership ------------------

// RegisterMember creates a member with an empty account and a bcrypt
// password hash.
func (lm *LibraryManager) RegisterMember(acting Role, name, contact string, role Role, password string) (*Member, error) {
	if !acting.Privileged() {
		return nil, fmt.Errorf("%w: register member requires staff or admin", ErrUnauthorized)
	}
	if !IsValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	m := &Member{
		ID:           lm.store.NextMemberID(),
		Name:         name,
		Contact:      contact,
		Role:         role,
		PasswordHash: string(hash),
	}
	if err := lm.store.AddMember(m); err != nil {
		return nil, err
	}
	if err := lm.persist(); err != nil {
		return nil, err
	}
	return m, nil
}

// Authenticate verifies a member's password.
func (lm *LibraryManager) Authenticate(memberID, password string) (*Member, error) {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return nil, fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	if bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: member %s", ErrBadCredentials, memberID)
	}
	return m, nil
}

// ------------------ Lending operations ------------------

// Borrow lends an available item to a member until now + loan period.
// Members at their borrow cap or with an outstanding fine cannot borrow.
func (lm *LibraryManager) Borrow(memberID, itemID string) (time.Time, error) {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	it, ok := lm.store.GetItem(itemID)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if it.Status != StatusAvailable {
		return time.Time{}, fmt.Errorf("%w: item %s is %s, not available", ErrInvalidState, itemID, it.Status)
	}
	if len(m.Borrowed) >= lm.cfg.MaxBorrowedItems {
		return time.Time{}, fmt.Errorf("%w: member %s already has %d items out", ErrLimitExceeded, memberID, len(m.Borrowed))
	}
	if m.Fine > 0 {
		return time.Time{}, fmt.Errorf("%w: member %s owes %.2f", ErrBlocked, memberID, m.Fine)
	}

	now := lm.now().UTC()
	due := now.Add(time.Duration(lm.cfg.LoanPeriodDays) * 24 * time.Hour)

	it.Status = StatusBorrowed
	it.DueAt = &due
	it.History = append(it.History, LoanRecord{
		MemberID:   memberID,
		BorrowedAt: now,
		DueAt:      due,
	})
	m.Borrowed = append(m.Borrowed, itemID)

	if err := lm.persist(); err != nil {
		return time.Time{}, err
	}
	return due, nil
}

// Return takes an item back from the member holding it and reports the fine
// charged (zero when on time). Anything past due is charged per whole day.
func (lm *LibraryManager) Return(memberID, itemID string) (float64, error) {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return 0, fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	it, ok := lm.store.GetItem(itemID)
	if !ok {
		return 0, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if !containsID(m.Borrowed, itemID) {
		return 0, fmt.Errorf("%w: member %s did not borrow item %s", ErrNotOwned, memberID, itemID)
	}

	now := lm.now().UTC()
	var fine float64
	if it.DueAt != nil && now.After(*it.DueAt) {
		fine = OverdueFine(now.Sub(*it.DueAt), lm.cfg.FinePerDay)
		m.Fine += fine
	}

	it.Status = StatusAvailable
	it.DueAt = nil
	for i := len(it.History) - 1; i >= 0; i-- {
		rec := &it.History[i]
		if rec.MemberID == memberID && rec.ReturnedAt == nil {
			ret := now
			rec.ReturnedAt = &ret
			break
		}
	}
	m.Borrowed = removeID(m.Borrowed, itemID)

	if err := lm.persist(); err != nil {
		return fine, err
	}
	return fine, nil
}

// Reserve holds an available item for a member.
func (lm *LibraryManager) Reserve(memberID, itemID string) error {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	it, ok := lm.store.GetItem(itemID)
	if !ok {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if containsID(m.Reserved, itemID) {
		return fmt.Errorf("%w: member %s already reserved item %s", ErrInvalidState, memberID, itemID)
	}
	if it.Status != StatusAvailable {
		return fmt.Errorf("%w: item %s is %s, not available", ErrInvalidState, itemID, it.Status)
	}

	it.Status = StatusReserved
	it.ReservedBy = memberID
	m.Reserved = append(m.Reserved, itemID)

	return lm.persist()
}

// CancelReservation releases a member's hold on an item.
func (lm *LibraryManager) CancelReservation(memberID, itemID string) error {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	it, ok := lm.store.GetItem(itemID)
	if !ok {
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if !containsID(m.Reserved, itemID) {
		return fmt.Errorf("%w: member %s has no reservation on item %s", ErrNotOwned, memberID, itemID)
	}

	it.Status = StatusAvailable
	it.ReservedBy = ""
	m.Reserved = removeID(m.Reserved, itemID)

	return lm.persist()
}

// PayFine pays amount off a member's balance and returns what remains.
// Overpayment is rejected, not clamped.
func (lm *LibraryManager) PayFine(memberID string, amount float64) (float64, error) {
	m, ok := lm.store.GetMember(memberID)
	if !ok {
		return 0, fmt.Errorf("%w: member %s", ErrNotFound, memberID)
	}
	if amount <= 0 {
		return m.Fine, fmt.Errorf("payment amount must be positive, got %.2f", amount)
	}
	if amount > m.Fine {
		return m.Fine, fmt.Errorf("%w: paying %.2f against balance %.2f", ErrOverpayment, amount, m.Fine)
	}

	m.Fine -= amount

	if err := lm.persist(); err != nil {
		return m.Fine, err
	}
	return m.Fine, nil
}

// ------------------ Read-only boundary ------------------

func (lm *LibraryManager) GetItem(id string) (*Item, bool)     { return lm.store.GetItem(id) }
func (lm *LibraryManager) GetMember(id string) (*Member, bool) { return lm.store.GetMember(id) }
func (lm *LibraryManager) Items() []*Item                      { return lm.store.Items() }
func (lm *LibraryManager) Members() []*Member                  { return lm.store.Members() }

func (lm *LibraryManager) FindItems(f ItemFilter) []*Item       { return lm.store.FindItems(f) }
func (lm *LibraryManager) FindMembers(f MemberFilter) []*Member { return lm.store.FindMembers(f) }

// Report derives the current statistics from the live store.
func (lm *LibraryManager) Report() Report {
	return GenerateReport(lm.store, lm.now().UTC())
}

// ------------------ Helpers ------------------

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
