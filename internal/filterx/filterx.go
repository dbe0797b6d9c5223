// Package filterx implements the pure filter predicate of SPEC_FULL.md
// §6.5: given a beatmap.Set and a Criteria, decide whether the set should
// be considered for sync. Grounded on the teacher's internal/sync/filter.go
// (a pure ShouldSync(path, isDir, size) -> Result function with no side
// effects), generalized here to operate on the domain's richer Set/Criteria
// shape instead of a path glob.
package filterx

import (
	"strings"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
)

// Criteria is the set of predicates a Set is matched against. A zero-value
// Criteria matches every set (spec.md §4.5: "an empty filter is a no-op").
type Criteria struct {
	Modes      []beatmap.Mode
	StarMin    *float64
	StarMax    *float64
	Statuses   []beatmap.RankedStatus
	Artist     string
	Mapper     string
	Query      string
}

// Matches reports whether set satisfies criteria. A per-difficulty
// predicate (mode, star rating, status) is existential: the set matches if
// any one difficulty satisfies it. A per-set predicate (artist, mapper,
// free-text query) matches across both the latin and unicode metadata
// fields. All active predicates must be satisfied (logical AND) for Matches
// to return true — this is spec.md §4.5's exact rule.
func Matches(set beatmap.Set, criteria Criteria) bool {
	if len(criteria.Modes) > 0 && !anyDifficultyMatchesMode(set, criteria.Modes) {
		return false
	}

	if (criteria.StarMin != nil || criteria.StarMax != nil) && !anyDifficultyInStarRange(set, criteria.StarMin, criteria.StarMax) {
		return false
	}

	if len(criteria.Statuses) > 0 && !anyDifficultyMatchesStatus(set, criteria.Statuses) {
		return false
	}

	if criteria.Artist != "" && !matchesSubstring(criteria.Artist, set.Artist, set.ArtistUnicode) {
		return false
	}

	if criteria.Mapper != "" && !matchesSubstring(criteria.Mapper, set.Creator) {
		return false
	}

	if criteria.Query != "" && !matchesQuery(criteria.Query, set) {
		return false
	}

	return true
}

func anyDifficultyMatchesMode(set beatmap.Set, modes []beatmap.Mode) bool {
	for _, d := range set.Difficulties {
		for _, m := range modes {
			if d.Mode == m {
				return true
			}
		}
	}

	return false
}

func anyDifficultyInStarRange(set beatmap.Set, min, max *float64) bool {
	for _, d := range set.Difficulties {
		if d.StarRating == nil {
			continue
		}

		sr := *d.StarRating
		if min != nil && sr < *min {
			continue
		}

		if max != nil && sr > *max {
			continue
		}

		return true
	}

	return false
}

func anyDifficultyMatchesStatus(set beatmap.Set, statuses []beatmap.RankedStatus) bool {
	for _, d := range set.Difficulties {
		if d.Status == nil {
			continue
		}

		for _, s := range statuses {
			if *d.Status == s {
				return true
			}
		}
	}

	return false
}

func matchesSubstring(needle string, haystacks ...string) bool {
	lowerNeedle := strings.ToLower(needle)
	for _, h := range haystacks {
		if h == "" {
			continue
		}

		if strings.Contains(strings.ToLower(h), lowerNeedle) {
			return true
		}
	}

	return false
}

func matchesQuery(query string, set beatmap.Set) bool {
	return matchesSubstring(query,
		set.Title, set.TitleUnicode, set.Artist, set.ArtistUnicode, set.Creator, set.Source, set.Tags,
		set.FolderName)
}
