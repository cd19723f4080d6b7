package errors_test

import (
	stderrors "errors"
	"testing"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := helixerr.New(
		helixerr.CodeStoreInvalidInput,
		"decision id must be positive",
		helixerr.FieldDecisionID(0),
	)

	require.Error(t, err)
	assert.Equal(t, helixerr.CodeStoreInvalidInput, helixerr.CodeOf(err))
	assert.True(t, helixerr.HasCode(err, helixerr.CodeStoreInvalidInput))
	assert.Equal(t, uint32(0), helixerr.FieldsOf(err)["decision_id"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := helixerr.Errorf(helixerr.CodeStoreDatabaseFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, helixerr.CodeStoreDatabaseFailure, helixerr.CodeOf(err))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, helixerr.Wrap(nil, helixerr.CodeStoreDatabaseFailure, "n/a"))
	assert.NoError(t, helixerr.Wrapf(nil, helixerr.CodeStoreDatabaseFailure, "n/a"))
	assert.NoError(t, helixerr.With(nil))
}

func TestIsNotFound(t *testing.T) {
	err := helixerr.New(helixerr.CodeQueryNotFound, "decision 7 not indexed")
	assert.True(t, helixerr.IsNotFound(err))
	assert.False(t, helixerr.IsEmptyResult(err))
}

func TestIsEmptyResult(t *testing.T) {
	err := helixerr.New(helixerr.CodeQueryEmptyResult, "no results")
	assert.True(t, helixerr.IsEmptyResult(err))
}

func TestIsLockHeld(t *testing.T) {
	err := helixerr.New(helixerr.CodeLockHeld, "index locked by another process")
	assert.True(t, helixerr.IsLockHeld(err))
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, 0},
		{"not found is quiet", helixerr.New(helixerr.CodeQueryNotFound, "x"), 1},
		{"empty result is quiet", helixerr.New(helixerr.CodeQueryEmptyResult, "x"), 1},
		{"store failure is fatal", helixerr.New(helixerr.CodeStoreDatabaseFailure, "x"), 2},
		{"lock held is fatal", helixerr.New(helixerr.CodeLockHeld, "x"), 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, helixerr.ExitCode(tc.err))
		})
	}
}

func TestWithPreservesCodeAndAddsFields(t *testing.T) {
	base := helixerr.New(helixerr.CodeStoreNotFound, "missing")
	err := helixerr.With(base, helixerr.FieldDirectory("/tmp/decisions"))

	assert.Equal(t, helixerr.CodeStoreNotFound, helixerr.CodeOf(err))
	assert.Equal(t, "/tmp/decisions", helixerr.FieldsOf(err)["directory"])
}

func TestJoin(t *testing.T) {
	err := helixerr.Join(stderrors.New("a"), stderrors.New("b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}
