package stable

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/hashcache"
)

// osuFile is the subset of a .osu file's [General]/[Metadata]/[Difficulty]
// sections this tool cares about, per SPEC_FULL.md §6.3's field list.
type osuFile struct {
	AudioFilename     string
	Mode              beatmap.Mode
	BeatmapSetID      *int32
	BeatmapID         *int32
	Title             string
	TitleUnicode      string
	Artist            string
	ArtistUnicode     string
	Creator           string
	Source            string
	Tags              string
	Version           string
	HPDrainRate       float64
	CircleSize        float64
	OverallDifficulty float64
	ApproachRate      float64
	SliderMultiplier  float64
	BackgroundFile    string
}

// parseOsuFile reads a .osu text file and extracts the fields SPEC_FULL.md
// §6.3 lists. Unknown or malformed lines are ignored rather than treated as
// parse errors — only an unreadable file itself is an error, matching
// spec.md §9's "malformed beatmap data never aborts a scan" rule.
func parseOsuFile(r io.Reader) (osuFile, error) {
	var f osuFile

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	section := ""
	backgroundFound := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line
			continue
		}

		switch section {
		case "[General]":
			parseGeneralLine(&f, line)
		case "[Metadata]":
			parseMetadataLine(&f, line)
		case "[Difficulty]":
			parseDifficultyLine(&f, line)
		case "[Events]":
			if !backgroundFound {
				if bg, ok := parseEventBackgroundLine(line); ok {
					f.BackgroundFile = bg
					backgroundFound = true
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return osuFile{}, err
	}

	return f, nil
}

func parseOsuFilePath(path string) (osuFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return osuFile{}, err
	}
	defer f.Close()

	return parseOsuFile(f)
}

// parseOsuCached parses the .osu file at path, reusing cache's
// ParsedMetadataCache entry when the file's (mtime, size) has not changed
// since it was last parsed (spec.md §4.2, P4). cache may be nil, in which
// case every call parses fresh.
func parseOsuCached(songsRoot, path string, cache *hashcache.Cache) (osuFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return osuFile{}, err
	}

	cacheKey, relErr := filepath.Rel(songsRoot, path)
	if relErr != nil {
		cacheKey = path
	}

	if cache != nil {
		if entry, ok := cache.GetParsed(cacheKey); ok && entry.Valid(info) {
			var parsed osuFile
			if err := gob.NewDecoder(bytes.NewReader(entry.Record)).Decode(&parsed); err == nil {
				return parsed, nil
			}
		}
	}

	parsed, err := parseOsuFilePath(path)
	if err != nil {
		return osuFile{}, err
	}

	if cache != nil {
		var buf bytes.Buffer
		if encErr := gob.NewEncoder(&buf).Encode(parsed); encErr == nil {
			cache.PutParsed(cacheKey, hashcache.ParsedEntry{
				MtimeSecs: info.ModTime().Unix(),
				Size:      info.Size(),
				Record:    buf.Bytes(),
			})
		}
	}

	return parsed, nil
}

func splitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}

	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func parseGeneralLine(f *osuFile, line string) {
	key, value, ok := splitKeyValue(line)
	if !ok {
		return
	}

	switch key {
	case "AudioFilename":
		f.AudioFilename = value
	case "Mode":
		if n, err := strconv.Atoi(value); err == nil {
			f.Mode = modeFromInt(n)
		}
	}
}

func parseMetadataLine(f *osuFile, line string) {
	key, value, ok := splitKeyValue(line)
	if !ok {
		return
	}

	switch key {
	case "Title":
		f.Title = value
	case "TitleUnicode":
		f.TitleUnicode = value
	case "Artist":
		f.Artist = value
	case "ArtistUnicode":
		f.ArtistUnicode = value
	case "Creator":
		f.Creator = value
	case "Source":
		f.Source = value
	case "Tags":
		f.Tags = value
	case "Version":
		f.Version = value
	case "BeatmapID":
		if n, err := strconv.Atoi(value); err == nil {
			v := int32(n)
			f.BeatmapID = &v
		}
	case "BeatmapSetID":
		if n, err := strconv.Atoi(value); err == nil {
			v := int32(n)
			f.BeatmapSetID = &v
		}
	}
}

func parseDifficultyLine(f *osuFile, line string) {
	key, value, ok := splitKeyValue(line)
	if !ok {
		return
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return
	}

	switch key {
	case "HPDrainRate":
		f.HPDrainRate = val
	case "CircleSize":
		f.CircleSize = val
	case "OverallDifficulty":
		f.OverallDifficulty = val
	case "ApproachRate":
		f.ApproachRate = val
	case "SliderMultiplier":
		f.SliderMultiplier = val
	}
}

// imageExtensions lists the extensions recognized for an [Events] background
// line, per spec.md §6's background-selection rule: the first type-0 event
// whose filename carries one of these extensions.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// parseEventBackgroundLine recognizes a storyboard/event line of the form
// `0,0,"bg.jpg",0,0` (background event type 0) and extracts the quoted
// filename, requiring an image extension to distinguish it from a video
// event (type "Video" or numeric 1).
func parseEventBackgroundLine(line string) (string, bool) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 3 {
		return "", false
	}

	eventType := strings.TrimSpace(parts[0])
	if eventType != "0" {
		return "", false
	}

	filenamePart := strings.TrimSpace(parts[2])

	end := strings.IndexByte(filenamePart, ',')
	if end >= 0 {
		filenamePart = filenamePart[:end]
	}

	filenamePart = strings.Trim(filenamePart, `"`)
	if filenamePart == "" {
		return "", false
	}

	lower := strings.ToLower(filenamePart)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return filenamePart, true
		}
	}

	return "", false
}

func modeFromInt(n int) beatmap.Mode {
	switch n {
	case 1:
		return beatmap.ModeTaiko
	case 2:
		return beatmap.ModeCatch
	case 3:
		return beatmap.ModeMania
	default:
		return beatmap.ModeStandard
	}
}
