// Package lazerdb reads beatmap metadata out of an osu!lazer installation's
// embedded SQLite database and resolves each difficulty's digest to a file
// body on disk (SPEC_FULL.md §6.4).
//
// Grounded on the teacher's internal/sync/state.go and baseline.go: open the
// pure-Go modernc.org/sqlite driver, set a handful of pragmas, then run
// ordinary database/sql queries. Unlike the teacher, this package only ever
// reads — osu!lazer itself owns writes to this database, so there is no
// migrations runner here; only internal/lazerdb's own test fixtures use
// goose to stand up a lazer-shaped schema (lazerdb_test.go).
package lazerdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, registers as "sqlite"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/syncerr"
)

// DB is a read-only handle onto one osu!lazer installation: its client.db
// SQLite database plus the files/ content-addressed store beside it.
type DB struct {
	sqlDB  *sql.DB
	root   string
	logger *slog.Logger
}

// clientDBFileName is the database file osu!lazer keeps at its storage
// root, per original_source's unified/migration.rs references to
// "client.db".
const clientDBFileName = "client.db"

// Open opens the lazer installation rooted at root read-only. The database
// is opened with mode=ro so a concurrently running lazer client is never at
// risk of this tool taking a write lock on its database.
func Open(root string, logger *slog.Logger) (*DB, error) {
	logger = applog.OrDiscard(logger)
	dbPath := filepath.Join(root, clientDBFileName)

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=0", dbPath)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, syncerr.NewDatabaseError(fmt.Errorf("lazerdb: opening %s: %w", dbPath, err))
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()

		return nil, syncerr.NewDatabaseError(fmt.Errorf("lazerdb: pinging %s: %w", dbPath, err))
	}

	return &DB{sqlDB: sqlDB, root: root, logger: logger}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.sqlDB.Close()
}

// ListSets reads every beatmap set and its difficulties out of the
// database, joining in file references by digest (Hash in lazer's own
// schema), and returns them as the installation-agnostic beatmap.Set model.
// A row that fails to scan is logged and skipped rather than aborting the
// whole read (spec.md §9: malformed rows never abort a read).
func (d *DB) ListSets(ctx context.Context) ([]beatmap.Set, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT s.ID, s.OnlineID, s.DeletePending, s.Hash,
		       m.Title, m.TitleUnicode, m.Artist, m.ArtistUnicode, m.Author, m.Source, m.Tags
		FROM BeatmapSet s
		LEFT JOIN BeatmapMetadata m ON m.ID = s.MetadataID
		WHERE s.DeletePending = 0
	`)
	if err != nil {
		return nil, syncerr.NewDatabaseError(fmt.Errorf("lazerdb: querying beatmap sets: %w", err))
	}
	defer rows.Close()

	var sets []beatmap.Set

	for rows.Next() {
		var (
			id            int64
			onlineID      sql.NullInt64
			deletePending int
			hash          sql.NullString
			title         sql.NullString
			titleUnicode  sql.NullString
			artist        sql.NullString
			artistUnicode sql.NullString
			author        sql.NullString
			source        sql.NullString
			tags          sql.NullString
		)

		if err := rows.Scan(&id, &onlineID, &deletePending, &hash,
			&title, &titleUnicode, &artist, &artistUnicode, &author, &source, &tags); err != nil {
			d.logger.Warn("lazerdb: skipping unreadable set row", "error", err)

			continue
		}

		set := beatmap.Set{
			Title:         title.String,
			TitleUnicode:  titleUnicode.String,
			Artist:        artist.String,
			ArtistUnicode: artistUnicode.String,
			Creator:       author.String,
			Source:        source.String,
			Tags:          tags.String,
		}

		if onlineID.Valid {
			v := int32(onlineID.Int64)
			set.SetID = &v
		}

		diffs, files, err := d.difficultiesForSet(ctx, id)
		if err != nil {
			d.logger.Warn("lazerdb: skipping set with unreadable difficulties", "set_id", id, "error", err)

			continue
		}

		if len(diffs) == 0 {
			continue
		}

		set.Difficulties = diffs
		set.Files = files
		set.FolderName = hash.String

		sets = append(sets, set)
	}

	if err := rows.Err(); err != nil {
		return nil, syncerr.NewDatabaseError(fmt.Errorf("lazerdb: reading set rows: %w", err))
	}

	return sets, nil
}

func (d *DB) difficultiesForSet(ctx context.Context, setID int64) ([]beatmap.Difficulty, []beatmap.FileReference, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT b.ID, b.OnlineID, b.RulesetID, b.DifficultyName, b.StarRating, b.Status,
		       b.DrainRate, b.CircleSize, b.OverallDifficulty, b.ApproachRate, b.SliderMultiplier,
		       b.Length, b.BPM
		FROM Beatmap b
		WHERE b.BeatmapSetInfoID = ?
	`, setID)
	if err != nil {
		return nil, nil, fmt.Errorf("querying difficulties: %w", err)
	}
	defer rows.Close()

	var diffs []beatmap.Difficulty

	for rows.Next() {
		var (
			id                int64
			onlineID          sql.NullInt64
			rulesetID         int
			name              sql.NullString
			starRating        sql.NullFloat64
			status            sql.NullInt64
			drainRate         sql.NullFloat64
			circleSize        sql.NullFloat64
			overallDifficulty sql.NullFloat64
			approachRate      sql.NullFloat64
			sliderMultiplier  sql.NullFloat64
			lengthMillis      sql.NullInt64
			bpm               sql.NullFloat64
		)

		if err := rows.Scan(&id, &onlineID, &rulesetID, &name, &starRating, &status,
			&drainRate, &circleSize, &overallDifficulty, &approachRate, &sliderMultiplier,
			&lengthMillis, &bpm); err != nil {
			d.logger.Warn("lazerdb: skipping unreadable difficulty row", "error", err)

			continue
		}

		digest, err := d.digestForBeatmap(ctx, id)
		if err != nil || digest == "" {
			continue
		}

		diff := beatmap.Difficulty{
			Digest: digest,
			Mode:   modeFromRuleset(rulesetID),
			Name:   name.String,
			Params: &beatmap.DifficultyParams{
				HPDrainRate:       drainRate.Float64,
				CircleSize:        circleSize.Float64,
				OverallDifficulty: overallDifficulty.Float64,
				ApproachRate:      approachRate.Float64,
				SliderMultiplier:  sliderMultiplier.Float64,
			},
			LengthMillis: lengthMillis.Int64,
			BPM:          bpm.Float64,
		}

		if starRating.Valid {
			v := starRating.Float64
			diff.StarRating = &v
		}

		if status.Valid {
			s := rankedStatusFromInt(int(status.Int64))
			diff.Status = &s
		}

		if onlineID.Valid {
			v := int32(onlineID.Int64)
			diff.BeatmapID = &v
		}

		diffs = append(diffs, diff)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	files, err := d.filesForSet(ctx, setID)
	if err != nil {
		return nil, nil, err
	}

	return diffs, files, nil
}

func (d *DB) digestForBeatmap(ctx context.Context, beatmapID int64) (string, error) {
	var hash string

	err := d.sqlDB.QueryRowContext(ctx, `
		SELECT f.Hash
		FROM BeatmapSetFileInfo sf
		JOIN File f ON f.ID = sf.FileInfoID
		JOIN Beatmap b ON b.BeatmapSetInfoID = sf.BeatmapSetInfoID
		WHERE b.ID = ? AND sf.Filename = b.Path
	`, beatmapID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return hash, nil
}

func (d *DB) filesForSet(ctx context.Context, setID int64) ([]beatmap.FileReference, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT sf.Filename, f.Hash
		FROM BeatmapSetFileInfo sf
		JOIN File f ON f.ID = sf.FileInfoID
		WHERE sf.BeatmapSetInfoID = ?
	`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []beatmap.FileReference

	for rows.Next() {
		var filename, hash string
		if err := rows.Scan(&filename, &hash); err != nil {
			d.logger.Warn("lazerdb: skipping unreadable file row", "error", err)

			continue
		}

		info, statErr := os.Stat(d.objectPath(hash))

		var size int64
		if statErr == nil {
			size = info.Size()
		}

		files = append(files, beatmap.FileReference{Filename: filename, Digest: hash, Size: size})
	}

	return files, rows.Err()
}

// objectPath returns the on-disk path of the content-addressed object for
// digest, following lazer's "files/<first hex byte>/<digest>" layout —
// the first two lowercase hex characters of digest name the subdirectory
// (spec.md §4.4, §6).
func (d *DB) objectPath(digest string) string {
	if len(digest) < 2 {
		return filepath.Join(d.root, "files", digest)
	}

	return filepath.Join(d.root, "files", digest[:2], digest)
}

// ReadFile returns the content of the object identified by digest. Returns
// syncerr.ErrObjectMissing if the referenced digest has no backing file —
// this can legitimately happen if the lazer store was pruned out from under
// a stale database row (spec.md §4.4).
func (d *DB) ReadFile(digest string) ([]byte, error) {
	path := d.objectPath(digest)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, syncerr.NewObjectMissing(digest)
		}

		return nil, fmt.Errorf("lazerdb: reading object %s: %w", digest, err)
	}

	return data, nil
}

func modeFromRuleset(rulesetID int) beatmap.Mode {
	switch rulesetID {
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

func rankedStatusFromInt(v int) beatmap.RankedStatus {
	switch v {
	case -2:
		return beatmap.StatusGraveyard
	case -1, 0:
		return beatmap.StatusPending
	case 1:
		return beatmap.StatusRanked
	case 2:
		return beatmap.StatusApproved
	case 3:
		return beatmap.StatusQualified
	case 4:
		return beatmap.StatusLoved
	default:
		return beatmap.StatusUnknown
	}
}
