package dedupe

import (
	"math"
	"strings"
	"unicode/utf8"

	"scenekeeper/internal/catalog"
)

// Axis selects which frame dimension ranks resolution.
type Axis string

const (
	AxisWidth  Axis = "width"
	AxisHeight Axis = "height"
)

const (
	// DefaultMinDuration is the shortest reference duration, in seconds, for
	// which a group is resolved at all.
	DefaultMinDuration = 600
	// ExtendedMinDuration is the relaxed minimum used by the extended variant.
	ExtendedMinDuration = 540

	// durationTolerance is the maximum relative deviation from the first
	// file's duration. Deliberately stricter than the match tolerance in
	// package matching.
	durationTolerance = 0.0005

	placeholderPrefix  = "None"
	canonicalMinLength = 20

	bytesPerGiB = 1024 * 1024 * 1024
)

// Fixed reason codes. Stage outcomes read "Best <stage>", "Not good <stage>"
// and "Best <stage> not organized".
const (
	ReasonNoFiles              = "No files"
	ReasonNoDuplicates         = "No duplicates"
	ReasonDurationBelowMinimum = "Duration below minimum"
	ReasonDurationNotValid     = "Duration not valid"
	ReasonOneOrganized         = "One organized among equal files"
	ReasonNoOrganized          = "No organized among equal file"
	ReasonManyOrganized        = "Selected among many organized equal files"
)

// codecPreference lists accepted codecs from best to worst.
var codecPreference = []string{"hevc", "h264", "vc1", "mpeg4", "wmv3"}

// Group is an ordered set of files believed to hold the same content. The
// first file is the duration reference.
type Group []catalog.FileRecord

// Policy tunes the optional parts of the cascade.
type Policy struct {
	MinDuration float64
	Axis        Axis
}

// DefaultPolicy returns the 600 second minimum ranked by width.
func DefaultPolicy() Policy {
	return Policy{MinDuration: DefaultMinDuration, Axis: AxisWidth}
}

func (p Policy) normalized() Policy {
	if p.MinDuration < 0 {
		p.MinDuration = 0
	}
	if p.Axis != AxisHeight {
		p.Axis = AxisWidth
	}
	return p
}

// Result is the outcome of resolving one group. A zero keeper means no file
// was selected and nothing should be deleted.
type Result struct {
	KeeperSceneID    int64
	KeeperFileID     int64
	Reason           string
	ToDeleteSceneIDs []int64
	ToDeleteFileIDs  []int64
	ToDeleteBytes    int64
	ToDeleteSizeGB   float64
}

// HasKeeper reports whether the cascade selected a file.
func (r Result) HasKeeper() bool {
	return r.KeeperSceneID != 0 || r.KeeperFileID != 0
}

// Resolve applies the default policy to group.
func Resolve(group Group) Result {
	return ResolveWithPolicy(group, DefaultPolicy())
}

// ResolveWithPolicy runs the selection cascade over group.
func ResolveWithPolicy(group Group, policy Policy) Result {
	switch len(group) {
	case 0:
		return Result{Reason: ReasonNoFiles}
	case 1:
		return Result{Reason: ReasonNoDuplicates}
	}
	policy = policy.normalized()

	if group[0].Duration < policy.MinDuration {
		return Result{Reason: ReasonDurationBelowMinimum}
	}
	if !durationsAgree(group) {
		return Result{Reason: ReasonDurationNotValid}
	}
	organizedRequested := !sameOrganized(group)

	stages := []struct {
		name   string
		narrow func(Group, []int) []int
	}{
		{string(policy.Axis), resolutionSelector(policy.Axis)},
		{"codec", selectByCodec},
		{"size", selectBySize},
	}

	candidates := make([]int, len(group))
	for i := range group {
		candidates[i] = i
	}
	for _, stage := range stages {
		candidates = stage.narrow(group, candidates)
		switch len(candidates) {
		case 0:
			return Result{Reason: "Not good " + stage.name}
		case 1:
			winner := candidates[0]
			if organizedRequested && !group[winner].Organized {
				return Result{Reason: "Best " + stage.name + " not organized"}
			}
			return keep(group, winner, "Best "+stage.name)
		}
	}
	return breakTie(group, candidates)
}

func durationsAgree(group Group) bool {
	reference := group[0].Duration
	if reference <= 0 {
		return false
	}
	for _, file := range group {
		if math.Abs(file.Duration-reference)/reference > durationTolerance {
			return false
		}
	}
	return true
}

func sameOrganized(group Group) bool {
	first := group[0].Organized
	for _, file := range group[1:] {
		if file.Organized != first {
			return false
		}
	}
	return true
}

func resolutionSelector(axis Axis) func(Group, []int) []int {
	if axis == AxisHeight {
		return selectByHeight
	}
	return selectByWidth
}

func selectByWidth(group Group, candidates []int) []int {
	best := math.MinInt
	for _, idx := range candidates {
		best = max(best, group[idx].Width)
	}
	return filter(candidates, func(idx int) bool { return group[idx].Width == best })
}

// selectByHeight prefers the 1080 tier, then 720, then the tallest file.
func selectByHeight(group Group, candidates []int) []int {
	tallest := math.MinInt
	present := make(map[int]bool, len(candidates))
	for _, idx := range candidates {
		h := group[idx].Height
		present[h] = true
		tallest = max(tallest, h)
	}
	target := tallest
	switch {
	case present[1080]:
		target = 1080
	case present[720]:
		target = 720
	}
	return filter(candidates, func(idx int) bool { return group[idx].Height == target })
}

func selectByCodec(group Group, candidates []int) []int {
	for _, codec := range codecPreference {
		matched := filter(candidates, func(idx int) bool {
			return strings.ToLower(strings.TrimSpace(group[idx].VideoCodec)) == codec
		})
		if len(matched) > 0 {
			return matched
		}
	}
	return nil
}

func selectBySize(group Group, candidates []int) []int {
	var largest int64 = math.MinInt64
	for _, idx := range candidates {
		largest = max(largest, group[idx].Size)
	}
	return filter(candidates, func(idx int) bool { return group[idx].Size == largest })
}

func breakTie(group Group, equals []int) Result {
	organized := filter(equals, func(idx int) bool { return group[idx].Organized })
	switch len(organized) {
	case 0:
		return Result{Reason: ReasonNoOrganized}
	case 1:
		return keep(group, organized[0], ReasonOneOrganized)
	default:
		return keep(group, pickAmongOrganized(group, organized), ReasonManyOrganized)
	}
}

// pickAmongOrganized drops placeholder names, then prefers a canonical name
// that every other candidate extends (e.g. "x.mp4" vs "x_1.mp4"). Without a
// canonical name the first organized file wins; which one that is depends on
// catalog ordering.
func pickAmongOrganized(group Group, organized []int) int {
	named := filter(organized, func(idx int) bool {
		return !strings.HasPrefix(group[idx].Basename, placeholderPrefix)
	})
	switch {
	case len(named) == 1:
		return named[0]
	case len(named) > 1:
		if idx, ok := canonicalName(group, named); ok {
			return idx
		}
	}
	return organized[0]
}

func canonicalName(group Group, candidates []int) (int, bool) {
	shortest := candidates[0]
	for _, idx := range candidates[1:] {
		if utf8.RuneCountInString(group[idx].Basename) < utf8.RuneCountInString(group[shortest].Basename) {
			shortest = idx
		}
	}
	if utf8.RuneCountInString(group[shortest].Basename) <= canonicalMinLength {
		return 0, false
	}
	stem := group[shortest].Stem()
	for _, idx := range candidates {
		if idx == shortest {
			continue
		}
		if !strings.HasPrefix(group[idx].Basename, stem) {
			return 0, false
		}
	}
	return shortest, true
}

func keep(group Group, winner int, reason string) Result {
	keeper := group[winner]
	result := Result{
		KeeperSceneID:   keeper.SceneID,
		KeeperFileID:    keeper.FileID,
		Reason:          reason,
		ToDeleteFileIDs: make([]int64, 0, len(group)-1),
	}
	seenScenes := map[int64]bool{keeper.SceneID: true}
	for i, file := range group {
		if i == winner {
			continue
		}
		result.ToDeleteFileIDs = append(result.ToDeleteFileIDs, file.FileID)
		if !seenScenes[file.SceneID] {
			seenScenes[file.SceneID] = true
			result.ToDeleteSceneIDs = append(result.ToDeleteSceneIDs, file.SceneID)
		}
		result.ToDeleteBytes += file.Size
	}
	result.ToDeleteSizeGB = BytesToGB(result.ToDeleteBytes)
	return result
}

// BytesToGB converts bytes to GiB rounded to two decimals.
func BytesToGB(bytes int64) float64 {
	return math.Round(float64(bytes)/bytesPerGiB*100) / 100
}

func filter(candidates []int, keep func(int) bool) []int {
	var out []int
	for _, idx := range candidates {
		if keep(idx) {
			out = append(out, idx)
		}
	}
	return out
}
