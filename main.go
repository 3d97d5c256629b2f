package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"library-records/library"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	cfg := library.LoadConfig()

	root := &cobra.Command{
		Use:   "library",
		Short: "Lending-records console for the library catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cfg)
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "report",
		Short: "Print the current catalog and member statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := library.NewLibraryManager(cfg)
			if err != nil {
				return err
			}
			defer mgr.Close()
			printReport(mgr.Report())
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readPassword securely reads a password with masking.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

// session tracks the logged-in member for role-gated commands.
type session struct {
	mgr     *library.LibraryManager
	current *library.Member
}

func runConsole(cfg library.Config) error {
	mgr, err := library.NewLibraryManager(cfg)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer mgr.Close()

	bootstrapAdmin(mgr)

	s := &session{mgr: mgr}
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Welcome to the Library Lending Records System!")
	fmt.Println("Available commands:")
	fmt.Println("  Catalog: add item, archive item, list items, find item")
	fmt.Println("  Members: register member, list members, find member")
	fmt.Println("  Lending: borrow, return, reserve, cancel reservation, pay fine")
	fmt.Println("  Session: login, logout, whoami")
	fmt.Println("  System: report, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "login":
			s.handleLogin(scanner)
		case "logout":
			s.current = nil
			fmt.Println("Logged out.")
		case "whoami":
			s.handleWhoami()
		case "add item":
			s.handleAddItem(scanner)
		case "archive item":
			s.handleArchiveItem(scanner)
		case "register member":
			s.handleRegisterMember(scanner)
		case "list items":
			s.handleListItems()
		case "list members":
			s.handleListMembers()
		case "find item":
			s.handleFindItem(scanner)
		case "find member":
			s.handleFindMember(scanner)
		case "borrow":
			s.handleBorrow(scanner)
		case "return":
			s.handleReturn(scanner)
		case "reserve":
			s.handleReserve(scanner)
		case "cancel reservation":
			s.handleCancelReservation(scanner)
		case "pay fine":
			s.handlePayFine(scanner)
		case "report":
			printReport(mgr.Report())
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return nil
}

// bootstrapAdmin seeds a default admin account on first run so privileged
// commands are reachable on an empty library.
func bootstrapAdmin(mgr *library.LibraryManager) {
	if len(mgr.Members()) > 0 {
		return
	}
	password := os.Getenv("LIBRARY_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}
	m, err := mgr.RegisterMember(library.RoleAdmin, "Administrator", "", library.RoleAdmin, password)
	if err != nil {
		fmt.Printf("Warning: could not create default admin: %v\n", err)
		return
	}
	fmt.Printf("Created default admin account %s (change its password policy before real use).\n", m.ID)
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func (s *session) handleLogin(sc *bufio.Scanner) {
	id, ok := prompt(sc, "Member ID: ")
	if !ok {
		return
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		return
	}
	m, err := s.mgr.Authenticate(id, password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		return
	}
	s.current = m
	fmt.Printf("Logged in as %s (%s, role %s).\n", m.Name, m.ID, m.Role)
}

func (s *session) handleWhoami() {
	if s.current == nil {
		fmt.Println("Not logged in.")
		return
	}
	fmt.Printf("%s (%s, role %s), %d borrowed, %d reserved, fine %.2f\n",
		s.current.Name, s.current.ID, s.current.Role,
		len(s.current.Borrowed), len(s.current.Reserved), s.current.Fine)
}

// actingRole is what the manager's privileged operations validate. Without a
// login the plain member role is passed and the operation refuses.
func (s *session) actingRole() library.Role {
	if s.current == nil {
		return library.RoleMember
	}
	return s.current.Role
}

// memberID defaults to the logged-in member but lets staff act for others.
func (s *session) memberID(sc *bufio.Scanner) (string, bool) {
	label := "Member ID: "
	if s.current != nil {
		label = fmt.Sprintf("Member ID [%s]: ", s.current.ID)
	}
	id, ok := prompt(sc, label)
	if !ok {
		return "", false
	}
	if id == "" && s.current != nil {
		return s.current.ID, true
	}
	if id == "" {
		fmt.Println("A member ID is required.")
		return "", false
	}
	return id, true
}

func (s *session) handleAddItem(sc *bufio.Scanner) {
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	creator, ok := prompt(sc, "Creator: ")
	if !ok {
		return
	}
	code, ok := prompt(sc, "Code (ISBN): ")
	if !ok {
		return
	}
	yearStr, ok := prompt(sc, "Year: ")
	if !ok {
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		fmt.Println("Year must be a number.")
		return
	}
	it, err := s.mgr.AddItem(s.actingRole(), title, creator, code, year)
	if err != nil {
		fmt.Printf("Could not add item: %v\n", err)
		return
	}
	fmt.Printf("Added item %s: %s by %s\n", it.ID, it.Title, it.Creator)
}

func (s *session) handleArchiveItem(sc *bufio.Scanner) {
	id, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := s.mgr.ArchiveItem(s.actingRole(), id); err != nil {
		fmt.Printf("Could not archive item: %v\n", err)
		return
	}
	fmt.Printf("Item %s archived.\n", id)
}

func (s *session) handleRegisterMember(sc *bufio.Scanner) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	contact, ok := prompt(sc, "Contact: ")
	if !ok {
		return
	}
	roleStr, ok := prompt(sc, "Role (member/staff/admin) [member]: ")
	if !ok {
		return
	}
	role := library.Role(roleStr)
	if roleStr == "" {
		role = library.RoleMember
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fmt.Printf("Failed to read password: %v\n", err)
		return
	}
	m, err := s.mgr.RegisterMember(s.actingRole(), name, contact, role, password)
	if err != nil {
		fmt.Printf("Could not register member: %v\n", err)
		return
	}
	fmt.Printf("Registered member %s: %s (role %s)\n", m.ID, m.Name, m.Role)
}

func (s *session) handleListItems() {
	items := s.mgr.Items()
	if len(items) == 0 {
		fmt.Println("The catalog is empty.")
		return
	}
	fmt.Printf("%-6s %-35s %-25s %-6s %-10s %s\n", "ID", "Title", "Creator", "Year", "Status", "Due/Reserved")
	for _, it := range items {
		fmt.Println(prettyItem(it))
	}
}

func (s *session) handleListMembers() {
	members := s.mgr.Members()
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-6s %-25s %-8s %-9s %-9s %s\n", "ID", "Name", "Role", "Borrowed", "Reserved", "Fine")
	for _, m := range members {
		fmt.Printf("%-6s %-25s %-8s %-9d %-9d %.2f\n",
			m.ID, m.Name, m.Role, len(m.Borrowed), len(m.Reserved), m.Fine)
	}
}

func (s *session) handleFindItem(sc *bufio.Scanner) {
	var f library.ItemFilter
	if v, ok := prompt(sc, "Title (blank to skip): "); ok && v != "" {
		f.Title = &v
	} else if !ok {
		return
	}
	if v, ok := prompt(sc, "Creator (blank to skip): "); ok && v != "" {
		f.Creator = &v
	} else if !ok {
		return
	}
	if v, ok := prompt(sc, "Status (blank to skip): "); ok && v != "" {
		status := library.ItemStatus(v)
		if !library.IsValidItemStatus(status) {
			fmt.Printf("Unknown status %q.\n", v)
			return
		}
		f.Status = &status
	} else if !ok {
		return
	}
	items := s.mgr.FindItems(f)
	if len(items) == 0 {
		fmt.Println("No matching items.")
		return
	}
	for _, it := range items {
		fmt.Println(prettyItem(it))
	}
}

func (s *session) handleFindMember(sc *bufio.Scanner) {
	var f library.MemberFilter
	if v, ok := prompt(sc, "Name (blank to skip): "); ok && v != "" {
		f.Name = &v
	} else if !ok {
		return
	}
	if v, ok := prompt(sc, "Role (blank to skip): "); ok && v != "" {
		role := library.Role(v)
		if !library.IsValidRole(role) {
			fmt.Printf("Unknown role %q.\n", v)
			return
		}
		f.Role = &role
	} else if !ok {
		return
	}
	members := s.mgr.FindMembers(f)
	if len(members) == 0 {
		fmt.Println("No matching members.")
		return
	}
	for _, m := range members {
		fmt.Printf("%-6s %-25s role %s, fine %.2f\n", m.ID, m.Name, m.Role, m.Fine)
	}
}

func (s *session) handleBorrow(sc *bufio.Scanner) {
	memberID, ok := s.memberID(sc)
	if !ok {
		return
	}
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	due, err := s.mgr.Borrow(memberID, itemID)
	if err != nil {
		fmt.Printf("Could not borrow: %v\n", err)
		return
	}
	fmt.Printf("Item %s borrowed by %s, due %s.\n", itemID, memberID, due.Format("2006-01-02"))
}

func (s *session) handleReturn(sc *bufio.Scanner) {
	memberID, ok := s.memberID(sc)
	if !ok {
		return
	}
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	fine, err := s.mgr.Return(memberID, itemID)
	if err != nil {
		fmt.Printf("Could not return: %v\n", err)
		return
	}
	if fine > 0 {
		fmt.Printf("Item %s returned late; fine of %.2f added to %s's balance.\n", itemID, fine, memberID)
	} else {
		fmt.Printf("Item %s returned on time.\n", itemID)
	}
}

func (s *session) handleReserve(sc *bufio.Scanner) {
	memberID, ok := s.memberID(sc)
	if !ok {
		return
	}
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := s.mgr.Reserve(memberID, itemID); err != nil {
		fmt.Printf("Could not reserve: %v\n", err)
		return
	}
	fmt.Printf("Item %s reserved for %s.\n", itemID, memberID)
}

func (s *session) handleCancelReservation(sc *bufio.Scanner) {
	memberID, ok := s.memberID(sc)
	if !ok {
		return
	}
	itemID, ok := prompt(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := s.mgr.CancelReservation(memberID, itemID); err != nil {
		fmt.Printf("Could not cancel reservation: %v\n", err)
		return
	}
	fmt.Printf("Reservation on %s cancelled for %s.\n", itemID, memberID)
}

func (s *session) handlePayFine(sc *bufio.Scanner) {
	memberID, ok := s.memberID(sc)
	if !ok {
		return
	}
	amountStr, ok := prompt(sc, "Amount: ")
	if !ok {
		return
	}
	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		fmt.Println("Amount must be a number.")
		return
	}
	balance, err := s.mgr.PayFine(memberID, amount)
	if err != nil {
		if errors.Is(err, library.ErrOverpayment) {
			fmt.Printf("Payment rejected: %v\n", err)
		} else {
			fmt.Printf("Could not pay fine: %v\n", err)
		}
		return
	}
	fmt.Printf("Payment accepted; %s now owes %.2f.\n", memberID, balance)
}

// prettyItem formats an item for lists.
func prettyItem(it *library.Item) string {
	extra := ""
	switch {
	case it.DueAt != nil:
		extra = "due " + it.DueAt.Format("2006-01-02")
	case it.ReservedBy != "":
		extra = "reserved by " + it.ReservedBy
	}
	return fmt.Sprintf("%-6s %-35s %-25s %-6d %-10s %s",
		it.ID, it.Title, it.Creator, it.Year, it.Status, extra)
}

func printReport(r library.Report) {
	fmt.Println("Library report")
	fmt.Printf("  Items:   %d total", r.TotalItems)
	for _, status := range []library.ItemStatus{
		library.StatusAvailable, library.StatusReserved, library.StatusBorrowed, library.StatusArchived,
	} {
		if count := r.ItemsByStatus[status]; count > 0 {
			fmt.Printf(", %d %s", count, status)
		}
	}
	fmt.Println()
	fmt.Printf("  Loans:   %d active, %d overdue\n", r.ActiveLoans, r.OverdueItems)
	fmt.Printf("  Members: %d total, %d with outstanding fines (%.2f owed)\n",
		r.TotalMembers, r.MembersWithFines, r.OutstandingFines)
	if len(r.TopCreators) > 0 {
		fmt.Println("  Top creators:")
		for _, cc := range r.TopCreators {
			fmt.Printf("    %-25s %d\n", cc.Creator, cc.Count)
		}
	}
}
