package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database persists Store snapshots to SQLite. It is the only I/O boundary
// of the engine: Save rewrites the whole snapshot in one transaction and
// Load reads it back, so the durable state is always the last saved store.
type Database struct {
	db *sql.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations. An unreadable or corrupt database is reported here,
// never papered over with an empty store.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create db dir: %v", ErrPersistence, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrPersistence, err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &Database{db: db}, nil
}

// Close closes the underlying database.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	// WAL keeps the synchronous per-operation saves cheap.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS items (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            title TEXT NOT NULL,
            creator TEXT NOT NULL,
            code TEXT NOT NULL,
            year INTEGER NOT NULL,
            status TEXT NOT NULL,
            due_at TEXT,
            reserved_by TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS loans (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            item_id TEXT NOT NULL REFERENCES items(id),
            member_id TEXT NOT NULL,
            borrowed_at TEXT NOT NULL,
            due_at TEXT NOT NULL,
            returned_at TEXT
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            id TEXT NOT NULL UNIQUE,
            name TEXT NOT NULL,
            contact TEXT NOT NULL,
            role TEXT NOT NULL,
            password_hash TEXT NOT NULL,
            fine REAL NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS member_borrowed (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id TEXT NOT NULL REFERENCES members(id),
            item_id TEXT NOT NULL REFERENCES items(id)
        );`,
		`CREATE TABLE IF NOT EXISTS member_reserved (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            member_id TEXT NOT NULL REFERENCES members(id),
            item_id TEXT NOT NULL REFERENCES items(id)
        );`,
		`CREATE TABLE IF NOT EXISTS counters (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            next_item_id INTEGER NOT NULL,
            next_member_id INTEGER NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Timestamp codec
// ---------------------------------------------------------------------------

// Timestamps are stored as RFC3339 text with nanoseconds, normalised to UTC,
// so the decoded instant equals the encoded one.
func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := decodeTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ---------------------------------------------------------------------------
// Snapshot save / load
// ---------------------------------------------------------------------------

// Save rewrites the durable snapshot in a single transaction.
func (d *Database) Save(snap Snapshot) error {
	if err := d.save(snap); err != nil {
		return fmt.Errorf("%w: save snapshot: %v", ErrPersistence, err)
	}
	return nil
}

func (d *Database) save(snap Snapshot) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Children before parents, foreign keys are on.
	for _, table := range []string{"loans", "member_borrowed", "member_reserved", "items", "members", "counters"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for _, it := range snap.Items {
		var reservedBy any
		if it.ReservedBy != "" {
			reservedBy = it.ReservedBy
		}
		if _, err := tx.Exec(
			`INSERT INTO items(id,title,creator,code,year,status,due_at,reserved_by) VALUES(?,?,?,?,?,?,?,?)`,
			it.ID, it.Title, it.Creator, it.Code, it.Year, string(it.Status),
			encodeTimePtr(it.DueAt), reservedBy,
		); err != nil {
			return err
		}
		for _, rec := range it.History {
			if _, err := tx.Exec(
				`INSERT INTO loans(item_id,member_id,borrowed_at,due_at,returned_at) VALUES(?,?,?,?,?)`,
				it.ID, rec.MemberID, encodeTime(rec.BorrowedAt), encodeTime(rec.DueAt),
				encodeTimePtr(rec.ReturnedAt),
			); err != nil {
				return err
			}
		}
	}

	for _, m := range snap.Members {
		if _, err := tx.Exec(
			`INSERT INTO members(id,name,contact,role,password_hash,fine) VALUES(?,?,?,?,?,?)`,
			m.ID, m.Name, m.Contact, string(m.Role), m.PasswordHash, m.Fine,
		); err != nil {
			return err
		}
		for _, itemID := range m.Borrowed {
			if _, err := tx.Exec(`INSERT INTO member_borrowed(member_id,item_id) VALUES(?,?)`, m.ID, itemID); err != nil {
				return err
			}
		}
		for _, itemID := range m.Reserved {
			if _, err := tx.Exec(`INSERT INTO member_reserved(member_id,item_id) VALUES(?,?)`, m.ID, itemID); err != nil {
				return err
			}
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO counters(id,next_item_id,next_member_id) VALUES(1,?,?)`,
		snap.NextItemID, snap.NextMemberID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Load reads the full snapshot back. A freshly created database yields an
// empty snapshot; any read failure is surfaced to the caller.
func (d *Database) Load() (Snapshot, error) {
	snap, err := d.load()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: load snapshot: %v", ErrPersistence, err)
	}
	return snap, nil
}

func (d *Database) load() (Snapshot, error) {
	snap := Snapshot{NextItemID: 1, NextMemberID: 1}

	items := make(map[string]*Item)
	rows, err := d.db.Query(`SELECT id,title,creator,code,year,status,due_at,reserved_by FROM items ORDER BY seq`)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		var status string
		var dueAt, reservedBy sql.NullString
		if err := rows.Scan(&it.ID, &it.Title, &it.Creator, &it.Code, &it.Year, &status, &dueAt, &reservedBy); err != nil {
			return snap, err
		}
		it.Status = ItemStatus(status)
		if !IsValidItemStatus(it.Status) {
			return snap, fmt.Errorf("item %s: unknown status %q", it.ID, status)
		}
		if it.DueAt, err = decodeTimePtr(dueAt); err != nil {
			return snap, fmt.Errorf("item %s: %w", it.ID, err)
		}
		if reservedBy.Valid {
			it.ReservedBy = reservedBy.String
		}
		items[it.ID] = &it
		snap.Items = append(snap.Items, &it)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	loanRows, err := d.db.Query(`SELECT item_id,member_id,borrowed_at,due_at,returned_at FROM loans ORDER BY seq`)
	if err != nil {
		return snap, err
	}
	defer loanRows.Close()
	for loanRows.Next() {
		var itemID string
		var rec LoanRecord
		var borrowedAt, dueAt string
		var returnedAt sql.NullString
		if err := loanRows.Scan(&itemID, &rec.MemberID, &borrowedAt, &dueAt, &returnedAt); err != nil {
			return snap, err
		}
		if rec.BorrowedAt, err = decodeTime(borrowedAt); err != nil {
			return snap, fmt.Errorf("loan on %s: %w", itemID, err)
		}
		if rec.DueAt, err = decodeTime(dueAt); err != nil {
			return snap, fmt.Errorf("loan on %s: %w", itemID, err)
		}
		if rec.ReturnedAt, err = decodeTimePtr(returnedAt); err != nil {
			return snap, fmt.Errorf("loan on %s: %w", itemID, err)
		}
		it, ok := items[itemID]
		if !ok {
			return snap, fmt.Errorf("loan references unknown item %s", itemID)
		}
		it.History = append(it.History, rec)
	}
	if err := loanRows.Err(); err != nil {
		return snap, err
	}

	members := make(map[string]*Member)
	memberRows, err := d.db.Query(`SELECT id,name,contact,role,password_hash,fine FROM members ORDER BY seq`)
	if err != nil {
		return snap, err
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var m Member
		var role string
		if err := memberRows.Scan(&m.ID, &m.Name, &m.Contact, &role, &m.PasswordHash, &m.Fine); err != nil {
			return snap, err
		}
		m.Role = Role(role)
		if !IsValidRole(m.Role) {
			return snap, fmt.Errorf("member %s: unknown role %q", m.ID, role)
		}
		members[m.ID] = &m
		snap.Members = append(snap.Members, &m)
	}
	if err := memberRows.Err(); err != nil {
		return snap, err
	}

	for _, link := range []struct {
		table string
		add   func(m *Member, itemID string)
	}{
		{"member_borrowed", func(m *Member, itemID string) { m.Borrowed = append(m.Borrowed, itemID) }},
		{"member_reserved", func(m *Member, itemID string) { m.Reserved = append(m.Reserved, itemID) }},
	} {
		linkRows, err := d.db.Query(`SELECT member_id,item_id FROM ` + link.table + ` ORDER BY seq`)
		if err != nil {
			return snap, err
		}
		for linkRows.Next() {
			var memberID, itemID string
			if err := linkRows.Scan(&memberID, &itemID); err != nil {
				linkRows.Close()
				return snap, err
			}
			m, ok := members[memberID]
			if !ok {
				linkRows.Close()
				return snap, fmt.Errorf("%s references unknown member %s", link.table, memberID)
			}
			link.add(m, itemID)
		}
		if err := linkRows.Err(); err != nil {
			linkRows.Close()
			return snap, err
		}
		linkRows.Close()
	}

	var nextItem, nextMember int
	err = d.db.QueryRow(`SELECT next_item_id,next_member_id FROM counters WHERE id=1`).Scan(&nextItem, &nextMember)
	switch {
	case err == sql.ErrNoRows:
		// Never saved yet, keep the fresh counters.
	case err != nil:
		return snap, err
	default:
		snap.NextItemID = nextItem
		snap.NextMemberID = nextMember
	}

	return snap, nil
}
