// Package beatmap defines the installation-agnostic data model shared by the
// stable scanner, the lazer database adapter, the filter engine, the
// duplicate detector, and the sync engine.
package beatmap

import "fmt"

// Mode identifies the osu! game mode a difficulty was authored for.
type Mode int

// Game modes, matching the values the .osu format's Mode key encodes.
const (
	ModeStandard Mode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

func (m Mode) String() string {
	switch m {
	case ModeStandard:
		return "osu"
	case ModeTaiko:
		return "taiko"
	case ModeCatch:
		return "catch"
	case ModeMania:
		return "mania"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RankedStatus mirrors the ranked-status values a beatmap can carry.
type RankedStatus int

// Ranked statuses.
const (
	StatusUnknown RankedStatus = iota
	StatusGraveyard
	StatusPending
	StatusRanked
	StatusApproved
	StatusQualified
	StatusLoved
)

// DifficultyParams holds the five floats that describe a difficulty's rating
// parameters. Every field is optional at the .osu level but the struct
// itself, once attached to a Difficulty, is always fully populated (zero
// values stand in for "not present" the way the source format does).
type DifficultyParams struct {
	HPDrainRate       float64
	CircleSize        float64
	OverallDifficulty float64
	ApproachRate      float64
	SliderMultiplier  float64
}

// FileReference identifies one file belonging to a Set: its logical name,
// content digest, and size in bytes. For the stable installation Filename is
// a path relative to the set's folder; for the lazer installation it is the
// logical name recorded in the database.
type FileReference struct {
	Filename string
	Digest   string
	Size     int64
}

// Difficulty is a single playable chart inside a Set, identified by its
// content digest (invariant: Digest is never empty once a Difficulty has
// been through a scan or database join — see (P2) in SPEC_FULL.md §10).
type Difficulty struct {
	Digest       string
	BeatmapID    *int32
	Mode         Mode
	Name         string
	StarRating   *float64
	Status       *RankedStatus
	Params       *DifficultyParams
	AudioFile    *FileReference
	Background   *FileReference
	LengthMillis int64
	BPM          float64
}

// Set is an ordered collection of one or more Difficulties sharing
// audio/background assets.
type Set struct {
	SetID      *int32
	FolderName string

	Title         string
	TitleUnicode  string
	Artist        string
	ArtistUnicode string
	Creator       string
	Source        string
	Tags          string

	Difficulties []Difficulty
	Files        []FileReference
}

// ErrEmptySet is returned by Validate when a set has no
// difficulties, violating invariant (P1).
var ErrEmptySet = fmt.Errorf("beatmap: set has no difficulties")

// Validate enforces (P1): every Set must carry at least one Difficulty, and
// every Difficulty must carry a non-empty digest.
func (s *Set) Validate() error {
	if len(s.Difficulties) == 0 {
		return ErrEmptySet
	}

	for i, d := range s.Difficulties {
		if d.Digest == "" {
			return fmt.Errorf("beatmap: difficulty %d of set %q has empty digest", i, s.FolderName)
		}
	}

	return nil
}

// DisplayName returns a human-readable "artist - title" label for the set,
// preferring the latin metadata and falling back to the Unicode fields when
// a latin field is empty; the folder name is used only when neither artist
// nor title is known.
func (s *Set) DisplayName() string {
	artist := s.Artist
	if artist == "" {
		artist = s.ArtistUnicode
	}

	title := s.Title
	if title == "" {
		title = s.TitleUnicode
	}

	if artist == "" && title == "" {
		return s.FolderName
	}

	return fmt.Sprintf("%s - %s", artist, title)
}

// TotalSize sums the size of every file in the set.
func (s *Set) TotalSize() int64 {
	var total int64
	for _, f := range s.Files {
		total += f.Size
	}

	return total
}

// HasMode reports whether any difficulty in the set was authored for mode m.
func (s *Set) HasMode(m Mode) bool {
	for _, d := range s.Difficulties {
		if d.Mode == m {
			return true
		}
	}

	return false
}
