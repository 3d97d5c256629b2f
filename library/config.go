package library

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries the tunable lending policy and the snapshot location.
type Config struct {
	DBPath           string
	LoanPeriodDays   int
	MaxBorrowedItems int
	FinePerDay       float64
}

// DefaultConfig returns the built-in policy: 14-day loans, five items out
// per member, one currency unit per overdue day.
func DefaultConfig() Config {
	return Config{
		DBPath:           "library.db",
		LoanPeriodDays:   14,
		MaxBorrowedItems: 5,
		FinePerDay:       1.0,
	}
}

// LoadConfig reads overrides from a .env file (if present) and the process
// environment on top of the defaults.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := DefaultConfig()

	if val := os.Getenv("LIBRARY_DB"); val != "" {
		cfg.DBPath = val
	}
	if val := os.Getenv("LOAN_PERIOD_DAYS"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &cfg.LoanPeriodDays); err != nil {
			log.Fatalf("Invalid LOAN_PERIOD_DAYS: %v", err)
		}
	}
	if val := os.Getenv("MAX_BORROWED_ITEMS"); val != "" {
		if _, err := fmt.Sscanf(val, "%d", &cfg.MaxBorrowedItems); err != nil {
			log.Fatalf("Invalid MAX_BORROWED_ITEMS: %v", err)
		}
	}
	if val := os.Getenv("FINE_PER_DAY"); val != "" {
		if _, err := fmt.Sscanf(val, "%f", &cfg.FinePerDay); err != nil {
			log.Fatalf("Invalid FINE_PER_DAY: %v", err)
		}
	}

	return cfg
}
