// Package title computes which rank titles a point total unlocks.
package title

import (
	"sort"

	"rider-profile/pkg/core/profile/model"
)

// Evaluate returns the titles whose threshold is at most points and that are
// not already unlocked, in ascending threshold order.
func Evaluate(table []model.Title, points int64, unlocked []string) []string {
	ordered := make([]model.Title, len(table))
	copy(ordered, table)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PointsRequired < ordered[j].PointsRequired
	})

	seen := make(map[string]struct{}, len(unlocked)+len(ordered))
	for _, t := range unlocked {
		seen[t] = struct{}{}
	}

	var delta []string
	for _, t := range ordered {
		if t.PointsRequired > points {
			break
		}
		if _, ok := seen[t.Title]; ok {
			continue
		}
		seen[t.Title] = struct{}{}
		delta = append(delta, t.Title)
	}
	return delta
}

// Merge appends delta to unlocked, skipping anything already present.
// Existing entries keep their position and are never removed.
func Merge(unlocked, delta []string) []string {
	out := make([]string, 0, len(unlocked)+len(delta))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{unlocked, delta} {
		for _, t := range list {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
