package library

import (
	"path/filepath"
	"testing"
	"time"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := tempDB(t)
	snap, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(snap.Items) != 0 || len(snap.Members) != 0 {
		t.Fatalf("fresh database should be empty")
	}
	if snap.NextItemID != 1 || snap.NextMemberID != 1 {
		t.Fatalf("fresh counters should start at 1, got %d/%d", snap.NextItemID, snap.NextMemberID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := tempDB(t)

	borrowedAt := time.Date(2025, 2, 1, 9, 30, 0, 123456789, time.UTC)
	due := borrowedAt.AddDate(0, 0, 14)
	returnedAt := borrowedAt.AddDate(0, 0, 10)

	in := Snapshot{
		Items: []*Item{
			{
				ID: "I1", Title: "1984", Creator: "George Orwell", Code: "978-0451524935",
				Year: 1949, Status: StatusBorrowed, DueAt: &due,
				History: []LoanRecord{
					{MemberID: "M2", BorrowedAt: borrowedAt.AddDate(0, -1, 0), DueAt: borrowedAt.AddDate(0, -1, 14), ReturnedAt: &returnedAt},
					{MemberID: "M1", BorrowedAt: borrowedAt, DueAt: due},
				},
			},
			{ID: "I2", Title: "Animal Farm", Creator: "George Orwell", Year: 1945, Status: StatusReserved, ReservedBy: "M2"},
			{ID: "I3", Title: "Dune", Creator: "Frank Herbert", Year: 1965, Status: StatusAvailable},
			{ID: "I4", Title: "Old Atlas", Creator: "Unknown", Status: StatusArchived},
		},
		Members: []*Member{
			{ID: "M1", Name: "Alice", Contact: "alice@example.com", Role: RoleMember, PasswordHash: "x", Borrowed: []string{"I1"}},
			{ID: "M2", Name: "Bob", Contact: "bob@example.com", Role: RoleStaff, PasswordHash: "y", Reserved: []string{"I2"}, Fine: 3.5},
		},
		NextItemID:   5,
		NextMemberID: 3,
	}

	if err := db.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(out.Items) != 4 || len(out.Members) != 2 {
		t.Fatalf("wrong counts: %d items, %d members", len(out.Items), len(out.Members))
	}
	if out.NextItemID != 5 || out.NextMemberID != 3 {
		t.Fatalf("counters not restored: %d/%d", out.NextItemID, out.NextMemberID)
	}

	i1 := out.Items[0]
	if i1.ID != "I1" || i1.Status != StatusBorrowed || i1.Title != "1984" || i1.Year != 1949 {
		t.Fatalf("item I1 fields wrong: %+v", i1)
	}
	if i1.DueAt == nil || !i1.DueAt.Equal(due) {
		t.Fatalf("due timestamp did not round-trip: %v", i1.DueAt)
	}
	if i1.ReservedBy != "" {
		t.Fatalf("borrowed item must not carry a reserving member")
	}
	if len(i1.History) != 2 {
		t.Fatalf("history lost: %d records", len(i1.History))
	}
	closed, open := i1.History[0], i1.History[1]
	if closed.ReturnedAt == nil || !closed.ReturnedAt.Equal(returnedAt) {
		t.Fatalf("closed loan return time wrong: %v", closed.ReturnedAt)
	}
	if open.ReturnedAt != nil {
		t.Fatalf("open loan must keep absent return time")
	}
	if !open.BorrowedAt.Equal(borrowedAt) || !open.DueAt.Equal(due) {
		t.Fatalf("loan instants did not round-trip: %+v", open)
	}

	i2 := out.Items[1]
	if i2.Status != StatusReserved || i2.ReservedBy != "M2" || i2.DueAt != nil {
		t.Fatalf("reserved item wrong: %+v", i2)
	}
	i3 := out.Items[2]
	if i3.DueAt != nil || i3.ReservedBy != "" || len(i3.History) != 0 {
		t.Fatalf("available item should carry no optionals: %+v", i3)
	}

	m1, m2 := out.Members[0], out.Members[1]
	if m1.Name != "Alice" || m1.Role != RoleMember || m1.PasswordHash != "x" {
		t.Fatalf("member M1 fields wrong: %+v", m1)
	}
	if len(m1.Borrowed) != 1 || m1.Borrowed[0] != "I1" || len(m1.Reserved) != 0 {
		t.Fatalf("member M1 sets wrong: %+v", m1)
	}
	if m2.Fine != 3.5 || len(m2.Reserved) != 1 || m2.Reserved[0] != "I2" {
		t.Fatalf("member M2 wrong: %+v", m2)
	}
}

func TestSaveOverwritesPreviousSnapshot(t *testing.T) {
	db := tempDB(t)

	first := Snapshot{
		Items:        []*Item{{ID: "I1", Title: "Gone", Status: StatusAvailable}},
		NextItemID:   2,
		NextMemberID: 1,
	}
	if err := db.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}

	second := Snapshot{
		Items:        []*Item{{ID: "I2", Title: "Kept", Status: StatusAvailable}},
		Members:      []*Member{{ID: "M1", Name: "Alice", Role: RoleMember}},
		NextItemID:   3,
		NextMemberID: 2,
	}
	if err := db.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	out, err := db.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].ID != "I2" {
		t.Fatalf("old snapshot rows survived: %+v", out.Items)
	}
	if len(out.Members) != 1 {
		t.Fatalf("members not saved")
	}
}

func TestLoadRejectsCorruptRows(t *testing.T) {
	db := tempDB(t)

	if _, err := db.db.Exec(
		`INSERT INTO items(id,title,creator,code,year,status) VALUES('I1','t','c','',0,'vanished')`,
	); err != nil {
		t.Fatalf("insert bad row: %v", err)
	}

	if _, err := db.Load(); err == nil {
		t.Fatalf("expected load to fail on unknown status, not fall back to empty")
	}
}
