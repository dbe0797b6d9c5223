// Command osu-libsync compares an osu!stable Songs folder against an
// osu!lazer installation's database and imports or exports the difference
// (SPEC_FULL.md §8).
package main

import (
	"context"
	"os"

	"github.com/osu-libsync/osu-libsync/internal/applog"
)

func main() {
	ctx := shutdownContext(context.Background(), applog.New(applog.Options{}))

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitOnError(err)
	}
}

func exitOnError(err error) {
	os.Stderr.WriteString("Error: " + err.Error() + "\n")
	os.Exit(1)
}
