package matching

import (
	"math"
	"strconv"
	"strings"

	"github.com/corona10/goimagehash"

	"scenekeeper/internal/catalog"
)

const (
	// absoluteDurationTolerance is the largest absolute duration gap, in
	// seconds, that still counts as agreement.
	absoluteDurationTolerance = 1.5
	// relativeDurationTolerance is the largest relative gap (0.3%) that still
	// counts as agreement. Looser than the duplicate resolver's 0.05%.
	relativeDurationTolerance = 0.003

	// maxSimilarMismatches bounds the positional character mismatches of a
	// similar phash.
	maxSimilarMismatches = 4

	dateTokenLength = 2
	dateTokenCount  = 3
)

// DurationAgreement counts every fingerprint (total) and those whose
// duration is close to the local duration (agreeing).
func DurationAgreement(fingerprints []catalog.CandidateFingerprint, localDuration float64) (total, agreeing int) {
	total = len(fingerprints)
	for _, fp := range fingerprints {
		if durationAgrees(fp.Duration, localDuration) {
			agreeing++
		}
	}
	return total, agreeing
}

func durationAgrees(remote, local float64) bool {
	gap := math.Abs(remote - local)
	if gap < absoluteDurationTolerance {
		return true
	}
	return local > 0 && gap/local < relativeDurationTolerance
}

// PHashAgreement counts perceptual-hash fingerprints equal to the local
// phash (exact) and within a few positional character mismatches (similar).
// An exact hash is also similar. Both counts are zero without a local phash.
func PHashAgreement(fingerprints []catalog.CandidateFingerprint, localPHash string) (exact, similar int) {
	if localPHash == "" {
		return 0, 0
	}
	for _, fp := range fingerprints {
		if fp.Algorithm != catalog.AlgorithmPHash {
			continue
		}
		if fp.Hash == localPHash {
			exact++
		}
		if positionalMismatches(fp.Hash, localPHash) <= maxSimilarMismatches {
			similar++
		}
	}
	return exact, similar
}

// positionalMismatches compares characters pairwise up to the shorter length.
func positionalMismatches(a, b string) int {
	n := min(len(a), len(b))
	mismatches := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			mismatches++
		}
	}
	return mismatches
}

// SameDate is a heuristic for filenames that embed the release date: the last
// two characters of each dash-separated date component must all appear in
// basename. Dates that do not yield three distinct tokens never match.
func SameDate(date, basename string) bool {
	if strings.TrimSpace(date) == "" {
		return false
	}
	seen := make(map[string]bool, dateTokenCount)
	tokens := make([]string, 0, dateTokenCount)
	for _, part := range strings.Split(date, "-") {
		token := part
		if len(part) > dateTokenLength {
			token = part[len(part)-dateTokenLength:]
		}
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	if len(tokens) != dateTokenCount {
		return false
	}
	for _, token := range tokens {
		if !strings.Contains(basename, token) {
			return false
		}
	}
	return true
}

// PHashDistance returns the bitwise Hamming distance between the closest
// remote perceptual hash and the local one, or -1 when no pair parses as a
// 64-bit hex hash.
func PHashDistance(fingerprints []catalog.CandidateFingerprint, localPHash string) int {
	local, ok := parsePHash(localPHash)
	if !ok {
		return -1
	}
	best := -1
	for _, fp := range fingerprints {
		if fp.Algorithm != catalog.AlgorithmPHash {
			continue
		}
		remote, ok := parsePHash(fp.Hash)
		if !ok {
			continue
		}
		distance, err := local.Distance(remote)
		if err != nil {
			continue
		}
		if best < 0 || distance < best {
			best = distance
		}
	}
	return best
}

func parsePHash(value string) (*goimagehash.ImageHash, bool) {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > 16 {
		return nil, false
	}
	bits, err := strconv.ParseUint(value, 16, 64)
	if err != nil {
		return nil, false
	}
	return goimagehash.NewImageHash(bits, goimagehash.PHash), true
}
