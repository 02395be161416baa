// Package progress summarizes an employee's onboarding completion from their
// current documents. It holds no state and never caches.
package progress

import (
	"math"
	"sort"

	"onboarding-backend/internal/doctypes"
	"onboarding-backend/internal/documents"
)

// Summary is the per-employee completion snapshot.
type Summary struct {
	Total                     int                      `json:"total"`
	VerifiedCount             int                      `json:"verifiedCount"`
	PendingCount              int                      `json:"pendingCount"`
	RejectedCount             int                      `json:"rejectedCount"`
	TypesUploaded             []doctypes.Type          `json:"typesUploaded"`
	CountsByStatus            map[documents.Status]int `json:"countsByStatus"`
	TotalRequiredTypes        int                      `json:"totalRequiredTypes"`
	OverallProgressPercentage int                      `json:"overallProgressPercentage"`
}

// Summarize counts the newest upload of each type. Superseded uploads are
// ignored so a re-upload replaces, rather than adds to, earlier attempts.
func Summarize(views []documents.View) Summary {
	current := documents.Current(views)

	s := Summary{
		TypesUploaded:      make([]doctypes.Type, 0, len(current)),
		CountsByStatus:     make(map[documents.Status]int, len(documents.AllStatuses)),
		TotalRequiredTypes: doctypes.RequiredTypeCount(),
	}
	for _, st := range documents.AllStatuses {
		s.CountsByStatus[st] = 0
	}

	for t, v := range current {
		s.Total++
		s.TypesUploaded = append(s.TypesUploaded, t)
		s.CountsByStatus[v.Status]++
		switch {
		case v.Status == documents.StatusVerified:
			s.VerifiedCount++
		case v.Status == documents.StatusRejected:
			s.RejectedCount++
		case v.Status.Pending():
			s.PendingCount++
		}
	}
	sort.Slice(s.TypesUploaded, func(i, j int) bool { return s.TypesUploaded[i] < s.TypesUploaded[j] })
	s.OverallProgressPercentage = Percentage(s.VerifiedCount, s.TotalRequiredTypes)
	return s
}

// Percentage returns round(done/total*100), clamped to [0, 100].
func Percentage(done, total int) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(math.Round(float64(done) / float64(total) * 100))
}

// Complete reports whether every required type is verified.
func (s Summary) Complete() bool {
	return s.TotalRequiredTypes > 0 && s.VerifiedCount >= s.TotalRequiredTypes
}
