package syncerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigError_FormatsMessage(t *testing.T) {
	err := NewConfigError("missing %s", "stable.songs_root")
	assert.Equal(t, "config: missing stable.songs_root", err.Error())
}

func TestIoError_UnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("permission denied")
	err := NewIoError("/some/path", underlying)
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "/some/path")
}

func TestParseError_UnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("bad line")
	err := NewParseError("diff.osu", underlying)
	assert.ErrorIs(t, err, underlying)
}

func TestDatabaseError_UnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("no such table")
	err := NewDatabaseError(underlying)
	assert.ErrorIs(t, err, underlying)
}

func TestErrObjectMissing_NamesDigest(t *testing.T) {
	err := NewObjectMissing("deadbeef")
	assert.Contains(t, err.Error(), "deadbeef")
}

func TestSetError_NamesSetAndMessage(t *testing.T) {
	err := NewSetError("Artist - Title", errors.New("disk full"))
	assert.Contains(t, err.Error(), "Artist - Title")
	assert.Contains(t, err.Error(), "disk full")
}
