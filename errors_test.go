package tfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesOnKindOnly(t *testing.T) {
	a := newPathError(KindNotFound, "Getattr", "/missing", nil)
	assert.True(t, errors.Is(a, ErrNotFound))
	assert.False(t, errors.Is(a, ErrExists))
}

func TestErrorUnwrapsUnderlyingCause(t *testing.T) {
	cause := errors.New("disk exploded")
	e := newError(KindIOError, "device.ReadBlock", cause)
	assert.ErrorIs(t, e, cause)
}

func TestErrorMessageIncludesPath(t *testing.T) {
	e := newPathError(KindNotFound, "Open", "/a/b", nil)
	assert.Contains(t, e.Error(), "/a/b")
	assert.Contains(t, e.Error(), "not found")
}
