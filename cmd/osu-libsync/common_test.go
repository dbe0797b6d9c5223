package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/config"
	"github.com/osu-libsync/osu-libsync/internal/dedupe"
)

func TestParseMode_AcceptsKnownAliases(t *testing.T) {
	m, err := parseMode("fruits")
	require.NoError(t, err)
	assert.Equal(t, beatmap.ModeCatch, m)

	_, err = parseMode("nonsense")
	assert.Error(t, err)
}

func TestParseStatus_AcceptsKnownNames(t *testing.T) {
	s, err := parseStatus("ranked")
	require.NoError(t, err)
	assert.Equal(t, beatmap.StatusRanked, s)

	_, err = parseStatus("nonsense")
	assert.Error(t, err)
}

func TestBuildCriteria_TranslatesModesAndStatuses(t *testing.T) {
	criteria, err := buildCriteria(config.FilterConfig{
		Modes:    []string{"osu", "mania"},
		Statuses: []string{"ranked", "loved"},
		Artist:   "Camellia",
	})
	require.NoError(t, err)
	assert.Equal(t, []beatmap.Mode{beatmap.ModeStandard, beatmap.ModeMania}, criteria.Modes)
	assert.Equal(t, []beatmap.RankedStatus{beatmap.StatusRanked, beatmap.StatusLoved}, criteria.Statuses)
	assert.Equal(t, "Camellia", criteria.Artist)
}

func TestBuildCriteria_PropagatesModeParseError(t *testing.T) {
	_, err := buildCriteria(config.FilterConfig{Modes: []string{"bogus"}})
	assert.Error(t, err)
}

func TestBuildStrategy_MapsEveryConfiguredName(t *testing.T) {
	assert.Equal(t, dedupe.ExactOnly, buildStrategy(config.DedupeConfig{Strategy: "exact"}))
	assert.Equal(t, dedupe.IDOrDigest, buildStrategy(config.DedupeConfig{Strategy: "id_or_digest"}))
	assert.Equal(t, dedupe.Composite, buildStrategy(config.DedupeConfig{Strategy: ""}))
	assert.Equal(t, dedupe.Fuzzy(0.9), buildStrategy(config.DedupeConfig{Strategy: "fuzzy", FuzzyThreshold: 0.9}))
}

func TestBuildStrategy_FuzzyFallsBackToDefaultThreshold(t *testing.T) {
	assert.Equal(t, dedupe.Fuzzy(dedupe.DefaultFuzzyThreshold), buildStrategy(config.DedupeConfig{Strategy: "fuzzy"}))
}

func TestBuildSetIDFilter_EmptyInputYieldsNilMap(t *testing.T) {
	assert.Nil(t, buildSetIDFilter(nil))
	assert.Equal(t, map[int32]bool{7: true}, buildSetIDFilter([]int32{7}))
}

func TestBuildFolderFilter_EmptyInputYieldsNilMap(t *testing.T) {
	assert.Nil(t, buildFolderFilter(nil))
	assert.Equal(t, map[string]bool{"a": true}, buildFolderFilter([]string{"a"}))
}

func TestDirectionFlag_TranslatesHyphenatedToUnderscored(t *testing.T) {
	old := flagDirection
	defer func() { flagDirection = old }()

	flagDirection = "lazer-to-stable"
	assert.Equal(t, "lazer_to_stable", directionFlag())

	flagDirection = "stable-to-lazer"
	assert.Equal(t, "stable_to_lazer", directionFlag())

	flagDirection = ""
	assert.Equal(t, "", directionFlag())
}
