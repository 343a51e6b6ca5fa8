package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeQueryService_ReturnsKeysWithinBounds(t *testing.T) {
	repo := newFakeRepository()
	require.NoError(t, repo.Save("a", []byte(`1`)))
	require.NoError(t, repo.Save("b", []byte(`2`)))
	require.NoError(t, repo.Save("z", []byte(`3`)))
	svc := NewRangeQueryService(repo)

	result, err := svc.Execute(RangeQuery{Lo: "a", Hi: "b"})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 2)
}

func TestRangeQueryService_PropagatesRepositoryError(t *testing.T) {
	repo := newFakeRepository()
	repo.rangeErr = errFakeRepository
	svc := NewRangeQueryService(repo)

	_, err := svc.Execute(RangeQuery{Lo: "a", Hi: "z"})
	assert.ErrorIs(t, err, errFakeRepository)
}
