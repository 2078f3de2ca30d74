package dedupe

import "sort"

// Summary aggregates resolution outcomes across a batch of groups.
type Summary struct {
	Groups         int
	ComparedFiles  int
	Resolved       int
	FilesToDelete  int
	ScenesToDelete int
	BytesToDelete  int64
	SizeGB         float64
	Reasons        map[string]int
}

// NewSummary returns an empty summary ready for Add.
func NewSummary() *Summary {
	return &Summary{Reasons: make(map[string]int)}
}

// Add records one group and its result.
func (s *Summary) Add(group Group, result Result) {
	if s.Reasons == nil {
		s.Reasons = make(map[string]int)
	}
	s.Groups++
	s.ComparedFiles += len(group)
	s.Reasons[result.Reason]++
	if !result.HasKeeper() {
		return
	}
	s.Resolved++
	s.FilesToDelete += len(result.ToDeleteFileIDs)
	s.ScenesToDelete += len(result.ToDeleteSceneIDs)
	s.BytesToDelete += result.ToDeleteBytes
	s.SizeGB = BytesToGB(s.BytesToDelete)
}

// ReasonCount is one row of the reason histogram.
type ReasonCount struct {
	Reason string
	Count  int
}

// SortedReasons returns the histogram ordered by count, then reason.
func (s *Summary) SortedReasons() []ReasonCount {
	out := make([]ReasonCount, 0, len(s.Reasons))
	for reason, count := range s.Reasons {
		out = append(out, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
