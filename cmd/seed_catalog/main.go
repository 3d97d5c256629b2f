package main

import (
	"fmt"
	"os"

	"library-records/library"
)

// Seeds a demo catalog and member set into a fresh database.
func main() {
	cfg := library.LoadConfig()

	fmt.Println("Cleaning up existing database files...")
	dbFiles := []string{cfg.DBPath, cfg.DBPath + "-shm", cfg.DBPath + "-wal"}
	for _, file := range dbFiles {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")

	mgr, err := library.NewLibraryManager(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	admin, err := mgr.RegisterMember(library.RoleAdmin, "Administrator", "admin@library.local", library.RoleAdmin, "admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating admin: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created admin account %s.\n", admin.ID)

	catalog := []struct {
		title, creator, code string
		year                 int
	}{
		{"1984", "George Orwell", "978-0451524935", 1949},
		{"Animal Farm", "George Orwell", "978-0452284241", 1945},
		{"The Diary of a Young Girl", "Anne Frank", "978-0553577129", 1947},
		{"The Art of War", "Sun Tzu", "978-1599869773", -500},
		{"The Fellowship of the Ring", "J.R.R. Tolkien", "978-0547928210", 1954},
		{"The Two Towers", "J.R.R. Tolkien", "978-0547928203", 1954},
		{"The Return of the King", "J.R.R. Tolkien", "978-0547928197", 1955},
		{"Romeo and Juliet", "William Shakespeare", "978-0743477116", 1597},
		{"The Three Musketeers", "Alexandre Dumas", "978-0140367470", 1844},
	}

	successCount := 0
	errorCount := 0
	for _, entry := range catalog {
		it, err := mgr.AddItem(library.RoleAdmin, entry.title, entry.creator, entry.code, entry.year)
		if err != nil {
			fmt.Printf("Error adding %q: %v\n", entry.title, err)
			errorCount++
			continue
		}
		fmt.Printf("Added %s: %s by %s\n", it.ID, it.Title, it.Creator)
		successCount++
	}

	staffNames := []struct{ name, contact string }{
		{"Sam Librarian", "sam@library.local"},
	}
	for _, entry := range staffNames {
		if _, err := mgr.RegisterMember(library.RoleAdmin, entry.name, entry.contact, library.RoleStaff, "staff"); err != nil {
			fmt.Printf("Error adding staff %q: %v\n", entry.name, err)
			errorCount++
		} else {
			successCount++
		}
	}

	memberNames := []struct{ name, contact string }{
		{"Alice Reader", "alice@example.com"},
		{"Bob Browser", "bob@example.com"},
		{"Charlie Late", "charlie@example.com"},
	}
	for _, entry := range memberNames {
		if _, err := mgr.RegisterMember(library.RoleAdmin, entry.name, entry.contact, library.RoleMember, "reader"); err != nil {
			fmt.Printf("Error adding member %q: %v\n", entry.name, err)
			errorCount++
		} else {
			successCount++
		}
	}

	fmt.Printf("Seeding complete: %d records created, %d errors.\n", successCount, errorCount)
}
