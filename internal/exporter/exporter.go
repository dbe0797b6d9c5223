// Package exporter packages a beatmap.Set into a deflate-compressed .osz
// archive dropped into an osu!lazer installation's import/ folder
// (SPEC_FULL.md §6.9 and §12: osu!lazer watches this folder and imports
// any archive placed there itself — this package's job ends at a
// successfully written, complete archive).
//
// Grounded on the teacher's executor_transfer.go for "write to a temp name,
// then rename into place so a partially written file is never mistaken for
// a complete one" and on klauspost/compress's flate writer, used here in
// place of archive/zip's built-in (stdlib) deflate implementation per
// SPEC_FULL.md's domain-stack wiring (see DESIGN.md).
package exporter

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"

	"github.com/osu-libsync/osu-libsync/internal/applog"
	"github.com/osu-libsync/osu-libsync/internal/beatmap"
	"github.com/osu-libsync/osu-libsync/internal/importer"
	"github.com/osu-libsync/osu-libsync/internal/syncengine"
	"github.com/osu-libsync/osu-libsync/internal/syncerr"
)

// TriggerFunc is called after an archive is fully written and renamed into
// place, naming its final path. Wiring an actual "tell lazer to import now"
// mechanism (e.g. a lazer IPC call) is an external collaborator outside
// this package's scope (spec.md §6's Non-goals) — by default TriggerFunc is
// nil and the archive simply waits for lazer's own folder watcher.
type TriggerFunc func(path string) error

// Exporter writes beatmap sets as .osz archives into a lazer installation's
// import/ folder.
type Exporter struct {
	importDir string
	trigger   TriggerFunc
	logger    *slog.Logger
}

// New returns an Exporter targeting lazerRoot/import. trigger may be nil.
func New(lazerRoot string, trigger TriggerFunc, logger *slog.Logger) *Exporter {
	return &Exporter{
		importDir: filepath.Join(lazerRoot, "import"),
		trigger:   trigger,
		logger:    applog.OrDiscard(logger),
	}
}

// deflateCompressor registers klauspost/compress's flate writer as the zip
// writer's Deflate implementation, in place of archive/zip's default
// compress/flate-backed one.
func deflateCompressor(w io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(w, flate.DefaultCompression)
}

// WriteSet archives set's files into a single top-level .osz, writing to a
// ".part" temp name first and renaming into place only once the archive is
// fully flushed and closed (spec.md §4.9: "never leave a half-written
// archive where lazer's folder watcher could pick it up"). WriteSet
// implements syncengine.SetWriter.
func (ex *Exporter) WriteSet(ctx context.Context, set beatmap.Set, source syncengine.FileSource) error {
	if err := os.MkdirAll(ex.importDir, 0o755); err != nil {
		return syncerr.NewIoError(ex.importDir, err)
	}

	name := importer.Sanitize(set.DisplayName())
	if name == "" {
		name = importer.Sanitize(set.FolderName)
	}

	tempName := fmt.Sprintf("%s.%s.osz.part", name, uuid.NewString())
	tempPath := filepath.Join(ex.importDir, tempName)
	finalPath := filepath.Join(ex.importDir, name+".osz")

	if err := ex.writeArchive(ctx, tempPath, set, source); err != nil {
		os.Remove(tempPath)

		return err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		return syncerr.NewIoError(finalPath, err)
	}

	ex.logger.Info("exporter: set exported", "set", set.DisplayName(), "path", finalPath)

	if ex.trigger != nil {
		if err := ex.trigger(finalPath); err != nil {
			ex.logger.Warn("exporter: trigger hook failed", "path", finalPath, "error", err)
		}
	}

	return nil
}

func (ex *Exporter) writeArchive(ctx context.Context, tempPath string, set beatmap.Set, source syncengine.FileSource) error {
	f, err := os.Create(tempPath)
	if err != nil {
		return syncerr.NewIoError(tempPath, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, deflateCompressor)

	for _, file := range set.Files {
		if ctx.Err() != nil {
			zw.Close()

			return ctx.Err()
		}

		data, err := source.ReadFile(set, file)
		if err != nil {
			zw.Close()

			return fmt.Errorf("exporter: reading %s: %w", file.Filename, err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   file.Filename,
			Method: zip.Deflate,
		})
		if err != nil {
			zw.Close()

			return fmt.Errorf("exporter: writing entry %s: %w", file.Filename, err)
		}

		if _, err := w.Write(data); err != nil {
			zw.Close()

			return fmt.Errorf("exporter: writing entry body %s: %w", file.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("exporter: closing archive: %w", err)
	}

	return f.Sync()
}
