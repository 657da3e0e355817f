package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestHasCodeWalksChain(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, CodeUnavailable, "store unreachable")
	outer := Wrap(wrapped, CodeInternal, "failed to create person")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(base, CodeInternal))
}

func TestCodeOfPrefersOutermost(t *testing.T) {
	err := Wrap(New(CodeNotFound, "missing"), CodeConflict, "duplicate identity")
	assert.Equal(t, CodeConflict, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestUnwrapPreservesCause(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(fmt.Errorf("step: %w", base), CodeInternal, "wrapped")
	require.ErrorIs(t, err, base)
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "duplicate identity", MessageOf(New(CodeConflict, "duplicate identity")))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
	assert.Equal(t, "", MessageOf(nil))
}
