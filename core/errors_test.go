package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Checks(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unknown title", NewUnknownTitleError("NotAMovie (1900)"), IsUnknownTitle},
		{"insufficient seeds", NewInsufficientSeedsError(0, 1), IsInsufficientSeeds},
		{"insufficient support", NewInsufficientSupportError(7, 0, 5), IsInsufficientSupport},
		{"data load", NewDataLoadError("missing column title", nil), IsDataLoad},
		{"wrapped unknown title", fmt.Errorf("seed 2: %w", NewUnknownTitleError("x")), IsUnknownTitle},
		{"store not found", ErrStoreNotFound, IsStoreNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, IsDomainError(tt.err))
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := NewDataLoadError("read ratings", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "catalog: read ratings: unexpected EOF", err.Error())
	assert.False(t, IsUnknownTitle(err))
	assert.False(t, IsDataLoad(nil))
	assert.Nil(t, GetDomainError(errors.New("plain")))
}

func TestRecommendContext_Labels(t *testing.T) {
	rctx := &RecommendContext{Seeds: []int64{3, 1, 3}}

	assert.True(t, rctx.IsSeed(1))
	assert.False(t, rctx.IsSeed(2))

	_, ok := rctx.GetLabel("ambiguous_seed")
	assert.False(t, ok)
}
