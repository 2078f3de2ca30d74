package scrape

import (
	"strings"

	"scenekeeper/internal/catalog"
	"scenekeeper/internal/matching"
)

// State tracks one scene against one stash box.
type State string

const (
	StatePending   State = "pending"
	StateScraped   State = "scraped"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
	StateAmbiguous State = "ambiguous"
	// StateFailed means the scrape call itself failed after retries.
	StateFailed State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateAccepted, StateRejected, StateAmbiguous, StateFailed:
		return true
	default:
		return false
	}
}

const (
	ReasonNoFile       = "no file"
	ReasonManyFiles    = "many files"
	ReasonNoMatchFound = "No match found"

	ambiguousPrefix = "More than one match : "
)

// Result is the disambiguated outcome for one scene and one stash box.
// ChosenIndex is -1 unless State is StateAccepted.
type Result struct {
	SceneID     int64
	Box         catalog.StashBox
	State       State
	Candidates  []catalog.Candidate
	Evaluations []matching.Evaluation
	ChosenIndex int
	Reason      string
	Err         error
}

// Accepted reports whether a candidate was chosen.
func (r Result) Accepted() bool {
	return r.State == StateAccepted
}

// Chosen returns the accepted candidate and its evaluation.
func (r Result) Chosen() (catalog.Candidate, matching.Evaluation, bool) {
	if r.State != StateAccepted || r.ChosenIndex < 0 || r.ChosenIndex >= len(r.Candidates) {
		return catalog.Candidate{}, matching.Evaluation{}, false
	}
	return r.Candidates[r.ChosenIndex], r.Evaluations[r.ChosenIndex], true
}

// PHashDistance returns the bitwise phash distance of the chosen candidate,
// or the closest one among all evaluated candidates when none was chosen.
// It is -1 when no distance could be computed.
func (r Result) PHashDistance() int {
	if _, eval, ok := r.Chosen(); ok {
		return eval.PHashDistance
	}
	best := -1
	for _, eval := range r.Evaluations {
		if eval.PHashDistance >= 0 && (best < 0 || eval.PHashDistance < best) {
			best = eval.PHashDistance
		}
	}
	return best
}

// RejectedCandidates reports whether the box returned candidates and every one
// of them was rejected.
func (r Result) RejectedCandidates() bool {
	return r.State == StateRejected && len(r.Candidates) > 0
}

// Resolve evaluates candidates scraped for scene and picks at most one. It
// performs no I/O.
func Resolve(scene catalog.Scene, box catalog.StashBox, candidates []catalog.Candidate) Result {
	result := Result{SceneID: scene.ID, Box: box, State: StateScraped, ChosenIndex: -1}
	switch {
	case len(scene.Files) == 0:
		return result.reject(ReasonNoFile)
	case len(scene.Files) > 1:
		return result.reject(ReasonManyFiles)
	case len(candidates) == 0:
		return result.reject(ReasonNoMatchFound)
	}
	result.Candidates = candidates

	result.Evaluations = make([]matching.Evaluation, len(candidates))
	for i, candidate := range candidates {
		result.Evaluations[i] = matching.Evaluate(candidate, scene)
	}

	if len(candidates) == 1 {
		eval := result.Evaluations[0]
		if eval.Matched {
			return result.accept(0)
		}
		return result.reject(eval.Why())
	}

	var matched, dated []int
	for i, eval := range result.Evaluations {
		if !eval.Matched {
			continue
		}
		matched = append(matched, i)
		if eval.SameDate {
			dated = append(dated, i)
		}
	}
	switch {
	case len(matched) == 1:
		return result.accept(matched[0])
	case len(dated) == 1:
		return result.accept(dated[0])
	case len(matched) > 1:
		result.State = StateAmbiguous
		result.Reason = auditTrail(result.Evaluations)
		return result
	default:
		return result.reject(auditTrail(result.Evaluations))
	}
}

func (r Result) accept(idx int) Result {
	r.State = StateAccepted
	r.ChosenIndex = idx
	r.Reason = r.Evaluations[idx].Why()
	return r
}

func (r Result) reject(reason string) Result {
	r.State = StateRejected
	r.ChosenIndex = -1
	r.Reason = reason
	return r
}

// auditTrail joins every candidate title with its evaluation so an operator
// can settle the scene by hand.
func auditTrail(evals []matching.Evaluation) string {
	parts := make([]string, 0, len(evals))
	for _, eval := range evals {
		parts = append(parts, eval.Title+" -> "+eval.Why())
	}
	return ambiguousPrefix + strings.Join(parts, " - ")
}
