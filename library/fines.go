package library

import "time"

// OverdueFine returns the fine owed for an overdue duration at perDay
// currency units per whole day late. Partial days are not charged, so a
// return before or exactly at the due time costs nothing.
func OverdueFine(overdue time.Duration, perDay float64) float64 {
	days := int(overdue / (24 * time.Hour))
	if days <= 0 {
		return 0
	}
	return float64(days) * perDay
}
