package filterx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
)

func sampleSet() beatmap.Set {
	sr := 4.5
	status := beatmap.StatusRanked

	return beatmap.Set{
		FolderName:    "1 Sample Artist - Sample Title",
		Artist:        "Sample Artist",
		ArtistUnicode: "サンプルアーティスト",
		Title:         "Sample Title",
		Creator:       "Mapper",
		Tags:          "electronic",
		Difficulties: []beatmap.Difficulty{
			{Digest: "d1", Mode: beatmap.ModeStandard, StarRating: &sr, Status: &status},
		},
	}
}

func TestMatches_EmptyCriteriaMatchesEverything(t *testing.T) {
	assert.True(t, Matches(sampleSet(), Criteria{}))
}

func TestMatches_ModeFilter(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Modes: []beatmap.Mode{beatmap.ModeStandard}}))
	assert.False(t, Matches(set, Criteria{Modes: []beatmap.Mode{beatmap.ModeMania}}))
}

func TestMatches_StarRangeFilter(t *testing.T) {
	set := sampleSet()
	min, max := 4.0, 5.0
	assert.True(t, Matches(set, Criteria{StarMin: &min, StarMax: &max}))

	tooHigh := 5.0
	assert.False(t, Matches(set, Criteria{StarMin: &tooHigh}))
}

func TestMatches_StatusFilter(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Statuses: []beatmap.RankedStatus{beatmap.StatusRanked}}))
	assert.False(t, Matches(set, Criteria{Statuses: []beatmap.RankedStatus{beatmap.StatusLoved}}))
}

func TestMatches_ArtistFilter_MatchesEitherScript(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Artist: "sample"}))
	assert.True(t, Matches(set, Criteria{Artist: "サンプル"}))
	assert.False(t, Matches(set, Criteria{Artist: "nonexistent"}))
}

func TestMatches_MapperFilter(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Mapper: "mapper"}))
	assert.False(t, Matches(set, Criteria{Mapper: "someone-else"}))
}

func TestMatches_FreeTextQuerySearchesAllMetadata(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Query: "electronic"}))
	assert.True(t, Matches(set, Criteria{Query: "Sample Title"}))
	assert.False(t, Matches(set, Criteria{Query: "nonexistent-tag"}))
}

func TestMatches_FreeTextQueryMatchesFolderName(t *testing.T) {
	set := sampleSet()
	assert.True(t, Matches(set, Criteria{Query: "1 Sample Artist"}))
}

func TestMatches_MultipleCriteriaAreConjunctive(t *testing.T) {
	set := sampleSet()
	min := 4.0
	assert.True(t, Matches(set, Criteria{Modes: []beatmap.Mode{beatmap.ModeStandard}, StarMin: &min, Artist: "sample"}))
	assert.False(t, Matches(set, Criteria{Modes: []beatmap.Mode{beatmap.ModeMania}, StarMin: &min, Artist: "sample"}))
}

func TestMatches_DifficultyWithoutStarRatingIsIgnoredForRangeFilter(t *testing.T) {
	set := beatmap.Set{
		Difficulties: []beatmap.Difficulty{{Digest: "d1", Mode: beatmap.ModeStandard}},
	}

	min := 1.0
	assert.False(t, Matches(set, Criteria{StarMin: &min}))
}
