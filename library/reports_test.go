package library

import (
	"testing"
	"time"
)

func TestGenerateReport(t *testing.T) {
	s := NewStore()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	pastDue := now.AddDate(0, 0, -2)
	futureDue := now.AddDate(0, 0, 5)

	s.AddItem(&Item{ID: "I1", Creator: "George Orwell", Status: StatusBorrowed, DueAt: &pastDue})
	s.AddItem(&Item{ID: "I2", Creator: "George Orwell", Status: StatusBorrowed, DueAt: &futureDue})
	s.AddItem(&Item{ID: "I3", Creator: "Frank Herbert", Status: StatusAvailable})
	s.AddItem(&Item{ID: "I4", Creator: "Frank Herbert", Status: StatusReserved, ReservedBy: "M1"})
	s.AddItem(&Item{ID: "I5", Creator: "Unknown", Status: StatusArchived})

	s.AddMember(&Member{ID: "M1", Role: RoleMember, Fine: 4.5, Borrowed: []string{"I1"}})
	s.AddMember(&Member{ID: "M2", Role: RoleMember, Fine: 1.5, Borrowed: []string{"I2"}})
	s.AddMember(&Member{ID: "M3", Role: RoleStaff})

	r := GenerateReport(s, now)

	if r.TotalItems != 5 {
		t.Fatalf("total items = %d", r.TotalItems)
	}
	if r.ItemsByStatus[StatusBorrowed] != 2 || r.ItemsByStatus[StatusAvailable] != 1 ||
		r.ItemsByStatus[StatusReserved] != 1 || r.ItemsByStatus[StatusArchived] != 1 {
		t.Fatalf("items by status wrong: %+v", r.ItemsByStatus)
	}
	if r.ActiveLoans != 2 {
		t.Fatalf("active loans = %d", r.ActiveLoans)
	}
	if r.OverdueItems != 1 {
		t.Fatalf("overdue items = %d", r.OverdueItems)
	}
	if r.TotalMembers != 3 || r.MembersWithFines != 2 {
		t.Fatalf("member counts wrong: %d/%d", r.TotalMembers, r.MembersWithFines)
	}
	if r.OutstandingFines != 6.0 {
		t.Fatalf("outstanding fines = %v", r.OutstandingFines)
	}

	if len(r.TopCreators) != 3 {
		t.Fatalf("top creators = %d entries", len(r.TopCreators))
	}
	if r.TopCreators[0].Count != 2 || r.TopCreators[1].Count != 2 {
		t.Fatalf("creator counts wrong: %+v", r.TopCreators)
	}
	// Equal counts break ties alphabetically.
	if r.TopCreators[0].Creator != "Frank Herbert" || r.TopCreators[1].Creator != "George Orwell" {
		t.Fatalf("creator order wrong: %+v", r.TopCreators)
	}
}

func TestReportReflectsLiveStore(t *testing.T) {
	mgr := newManager(t)
	itemID := addItem(t, mgr, "Book", "Author")
	memberID := addMember(t, mgr, "Alice")

	before := mgr.Report()
	if before.ActiveLoans != 0 || before.ItemsByStatus[StatusAvailable] != 1 {
		t.Fatalf("initial report wrong: %+v", before)
	}

	if _, err := mgr.Borrow(memberID, itemID); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	after := mgr.Report()
	if after.ActiveLoans != 1 || after.ItemsByStatus[StatusBorrowed] != 1 {
		t.Fatalf("report not recomputed: %+v", after)
	}

	setClock(mgr, 20)
	if overdue := mgr.Report(); overdue.OverdueItems != 1 {
		t.Fatalf("overdue not derived from now: %+v", overdue)
	}
}

func TestEmptyReport(t *testing.T) {
	r := GenerateReport(NewStore(), time.Now())
	if r.TotalItems != 0 || r.TotalMembers != 0 || r.OutstandingFines != 0 || len(r.TopCreators) != 0 {
		t.Fatalf("empty store should yield zero report: %+v", r)
	}
}
