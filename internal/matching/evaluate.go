// Package matching decides whether a scraped candidate describes the same
// video as a local scene, using fingerprint durations, perceptual hashes and
// a filename date heuristic.
package matching

import (
	"fmt"

	"scenekeeper/internal/catalog"
)

// ReasonNoGoodMatch is reported for every rejected candidate.
const ReasonNoGoodMatch = "No good match found"

// recurringDurationThreshold is the agreeing-duration count that accepts an
// exact phash even when some submissions disagree.
const recurringDurationThreshold = 10

// Evaluation is the verdict for one candidate against one local file.
type Evaluation struct {
	Title            string
	Matched          bool
	SameDate         bool
	DurationTotal    int
	DurationAgreeing int
	PHashExact       int
	PHashSimilar     int
	// PHashDistance is the closest bitwise distance, -1 when unknown. It is
	// recorded for auditing and never affects Matched.
	PHashDistance int
	Reason        string
}

// Why renders the reason with its evidence as
// "reason (total/agreeing/exact/similar/same_date)".
func (e Evaluation) Why() string {
	return fmt.Sprintf("%s (%d/%d/%d/%d/%t)", e.Reason, e.DurationTotal, e.DurationAgreeing, e.PHashExact, e.PHashSimilar, e.SameDate)
}

// Evaluate compares candidate with the primary file of scene. Callers must
// ensure the scene has exactly one file.
func Evaluate(candidate catalog.Candidate, scene catalog.Scene) Evaluation {
	file, _ := scene.PrimaryFile()
	return EvaluateFile(candidate, file)
}

// EvaluateFile compares candidate with a single local file.
func EvaluateFile(candidate catalog.Candidate, file catalog.FileRecord) Evaluation {
	eval := Evaluation{Title: candidate.Title}
	eval.DurationTotal, eval.DurationAgreeing = DurationAgreement(candidate.Fingerprints, file.Duration)
	eval.PHashExact, eval.PHashSimilar = PHashAgreement(candidate.Fingerprints, file.PHash)
	eval.SameDate = SameDate(candidate.Date, file.Basename)
	eval.PHashDistance = PHashDistance(candidate.Fingerprints, file.PHash)
	eval.Matched = verdict(eval)
	if !eval.Matched {
		eval.Reason = ReasonNoGoodMatch
	}
	return eval
}

func verdict(e Evaluation) bool {
	allAgree := e.DurationAgreeing == e.DurationTotal
	switch {
	case e.PHashExact > 0 && (allAgree || e.DurationAgreeing >= recurringDurationThreshold):
		return true
	case e.PHashSimilar > 1 && allAgree:
		return true
	case e.PHashExact > 0 && e.DurationAgreeing > 5 && e.SameDate:
		return true
	case allAgree && e.SameDate:
		return true
	}
	return false
}
