package config

import (
	"log/slog"
	"os"

	"github.com/osu-libsync/osu-libsync/internal/applog"
)

func discardLogger() *slog.Logger {
	return applog.Discard()
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
