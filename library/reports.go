package library

import (
	"sort"
	"time"
)

// CreatorCount is one row of the top-creators ranking.
type CreatorCount struct {
	Creator string
	Count   int
}

// Report is a point-in-time summary of the store. It is recomputed on every
// request and never cached.
type Report struct {
	TotalItems    int
	ItemsByStatus map[ItemStatus]int
	OverdueItems  int
	ActiveLoans   int

	TotalMembers     int
	MembersWithFines int
	OutstandingFines float64

	TopCreators []CreatorCount
}

const topCreatorLimit = 10

// GenerateReport derives the statistics from the store as of now. It reads
// the store and mutates nothing.
func GenerateReport(s *Store, now time.Time) Report {
	r := Report{ItemsByStatus: make(map[ItemStatus]int)}

	creators := make(map[string]int)
	for _, it := range s.Items() {
		r.TotalItems++
		r.ItemsByStatus[it.Status]++
		if it.Status == StatusBorrowed {
			r.ActiveLoans++
			if it.DueAt != nil && it.DueAt.Before(now) {
				r.OverdueItems++
			}
		}
		if it.Creator != "" {
			creators[it.Creator]++
		}
	}

	for _, m := range s.Members() {
		r.TotalMembers++
		if m.Fine > 0 {
			r.MembersWithFines++
			r.OutstandingFines += m.Fine
		}
	}

	for creator, count := range creators {
		r.TopCreators = append(r.TopCreators, CreatorCount{Creator: creator, Count: count})
	}
	sort.Slice(r.TopCreators, func(i, j int) bool {
		if r.TopCreators[i].Count != r.TopCreators[j].Count {
			return r.TopCreators[i].Count > r.TopCreators[j].Count
		}
		return r.TopCreators[i].Creator < r.TopCreators[j].Creator
	})
	if len(r.TopCreators) > topCreatorLimit {
		r.TopCreators = r.TopCreators[:topCreatorLimit]
	}

	return r
}
