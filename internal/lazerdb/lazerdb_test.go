package lazerdb

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/osu-libsync/osu-libsync/internal/applog"
)

//go:embed testdb/migrations/*.sql
var testMigrationsFS embed.FS

// newFixtureRoot builds a throwaway lazer installation root: a client.db
// seeded with a lazer-shaped schema via goose, plus a files/ object store
// holding the bodies referenced from it.
func newFixtureRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	dbPath := filepath.Join(root, clientDBFileName)

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	sub, err := fs.Sub(testMigrationsFS, "testdb/migrations")
	require.NoError(t, err)

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	require.NoError(t, err)

	_, err = provider.Up(context.Background())
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO BeatmapMetadata (ID, Title, TitleUnicode, Artist, ArtistUnicode, Author, Source, Tags)
		VALUES (1, 'Sample Title', 'Sample Title', 'Sample Artist', 'Sample Artist', 'Mapper', '', 'tag1 tag2')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO BeatmapSet (ID, OnlineID, DeletePending, Hash, MetadataID) VALUES (1, 456, 0, 'folderhash', 1)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO Beatmap
		(ID, BeatmapSetInfoID, OnlineID, RulesetID, DifficultyName, StarRating, Status, DrainRate, CircleSize, OverallDifficulty, ApproachRate, SliderMultiplier, Length, BPM, Path)
		VALUES (1, 1, 789, 0, 'Normal', 3.2, 1, 5, 4, 6, 7, 1.4, 120000, 180, 'Normal.osu')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO File (ID, Hash) VALUES (1, 'osudigestabc'), (2, 'audiodigestdef')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO BeatmapSetFileInfo (BeatmapSetInfoID, FileInfoID, Filename) VALUES
		(1, 1, 'Normal.osu'), (1, 2, 'audio.mp3')`)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "files", "os"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "os", "osudigestabc"), []byte("osu file body"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "files", "au"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "au", "audiodigestdef"), []byte("audio body"), 0o644))

	return root
}

func TestOpen_AndListSets_JoinsMetadataAndFiles(t *testing.T) {
	root := newFixtureRoot(t)

	db, err := Open(root, applog.Discard())
	require.NoError(t, err)
	defer db.Close()

	sets, err := db.ListSets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)

	s := sets[0]
	assert.Equal(t, "Sample Artist", s.Artist)
	require.NotNil(t, s.SetID)
	assert.EqualValues(t, 456, *s.SetID)
	require.Len(t, s.Difficulties, 1)
	assert.Equal(t, "osudigestabc", s.Difficulties[0].Digest)
	require.NotNil(t, s.Difficulties[0].BeatmapID)
	assert.EqualValues(t, 789, *s.Difficulties[0].BeatmapID)
	require.NotNil(t, s.Difficulties[0].StarRating)
	assert.InDelta(t, 3.2, *s.Difficulties[0].StarRating, 0.001)
	assert.Len(t, s.Files, 2)
}

func TestReadFile_ReturnsBody(t *testing.T) {
	root := newFixtureRoot(t)

	db, err := Open(root, applog.Discard())
	require.NoError(t, err)
	defer db.Close()

	data, err := db.ReadFile("osudigestabc")
	require.NoError(t, err)
	assert.Equal(t, "osu file body", string(data))
}

func TestReadFile_MissingObjectReturnsErrObjectMissing(t *testing.T) {
	root := newFixtureRoot(t)

	db, err := Open(root, applog.Discard())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.ReadFile("doesnotexist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object missing")
}

func TestOpen_MissingDatabaseFileErrors(t *testing.T) {
	root := t.TempDir()

	// sql.Open with mode=ro against a nonexistent file fails at Ping, not Open.
	_, err := Open(root, applog.Discard())
	assert.Error(t, err)
}
