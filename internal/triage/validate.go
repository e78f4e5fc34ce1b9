package triage

import "strings"

// Clamp01 clamps a confidence or uncertainty value into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampScore clamps a composite priority score into [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampOrdinal clamps a severity/impact/effort sub-score into [1,5].
func ClampOrdinal(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// NumberSet is the set of work item numbers belonging to one run. It is
// the authority for membership validation across all stages.
type NumberSet map[int]bool

// NumbersOf builds the number set for a slice of work items.
func NumbersOf(items []WorkItem) NumberSet {
	set := make(NumberSet, len(items))
	for _, it := range items {
		set[it.Number] = true
	}
	return set
}

// FilterMembers drops any member numbers not present in the set,
// preserving order. Out-of-set members are never silently retained.
func (s NumberSet) FilterMembers(members []int) []int {
	kept := make([]int, 0, len(members))
	for _, n := range members {
		if s[n] {
			kept = append(kept, n)
		}
	}
	return kept
}

// ParseRepo splits an "owner/name" repository identifier.
// Returns ok=false if the format is anything else.
func ParseRepo(repo string) (owner, name string, ok bool) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
