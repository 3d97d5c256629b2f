package library

import "time"

// ItemStatus is the circulation state of a catalog item.
type ItemStatus string

const (
	StatusAvailable ItemStatus = "available"
	StatusReserved  ItemStatus = "reserved"
	StatusBorrowed  ItemStatus = "borrowed"
	StatusArchived  ItemStatus = "archived"
)

var validItemStatuses = map[ItemStatus]bool{
	StatusAvailable: true,
	StatusReserved:  true,
	StatusBorrowed:  true,
	StatusArchived:  true,
}

func IsValidItemStatus(s ItemStatus) bool { return validItemStatuses[s] }

// Role controls which privileged operations a member may invoke.
type Role string

const (
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

var validRoles = map[Role]bool{
	RoleMember: true,
	RoleStaff:  true,
	RoleAdmin:  true,
}

func IsValidRole(r Role) bool { return validRoles[r] }

// Privileged reports whether the role may manage the catalog and members.
func (r Role) Privileged() bool { return r == RoleStaff || r == RoleAdmin }

// LoanRecord is one loan episode in an item's history. ReturnedAt is nil
// while the item is still out. All timestamps are UTC.
type LoanRecord struct {
	MemberID   string
	BorrowedAt time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
}

// Item is one lendable catalog record. DueAt is set only while the item is
// borrowed, ReservedBy only while it is reserved; never both.
type Item struct {
	ID         string
	Title      string
	Creator    string
	Code       string // external code, e.g. ISBN
	Year       int
	Status     ItemStatus
	DueAt      *time.Time
	ReservedBy string
	History    []LoanRecord
}

// Member is one registered person. Borrowed and Reserved hold item ids in
// acquisition order; Fine is the outstanding balance and never goes negative.
type Member struct {
	ID           string
	Name         string
	Contact      string
	Role         Role
	PasswordHash string
	Borrowed     []string
	Reserved     []string
	Fine         float64
}

// Snapshot is the complete serialisable state of the store, including the
// id counters so minted identifiers stay unique across restarts.
type Snapshot struct {
	Items        []*Item
	Members      []*Member
	NextItemID   int
	NextMemberID int
}
