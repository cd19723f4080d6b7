package lock_test

import (
	"testing"

	"github.com/kevinmichaelchen/helix-tools/internal/lock"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireExclusive_BlocksSecondExclusive(t *testing.T) {
	dir := t.TempDir()

	first, err := lock.AcquireExclusive(dir)
	require.NoError(t, err)
	defer first.Release()

	_, err = lock.AcquireExclusive(dir)
	require.Error(t, err)
	assert.True(t, helixerr.IsLockHeld(err))
}

func TestAcquireExclusive_ReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	first, err := lock.AcquireExclusive(dir)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := lock.AcquireExclusive(dir)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquireShared_AllowsMultipleReaders(t *testing.T) {
	dir := t.TempDir()

	first, err := lock.AcquireShared(dir)
	require.NoError(t, err)
	defer first.Release()

	second, err := lock.AcquireShared(dir)
	require.NoError(t, err)
	defer second.Release()
}

func TestAcquireShared_BlocksExclusive(t *testing.T) {
	dir := t.TempDir()

	shared, err := lock.AcquireShared(dir)
	require.NoError(t, err)
	defer shared.Release()

	_, err = lock.AcquireExclusive(dir)
	require.Error(t, err)
	assert.True(t, helixerr.IsLockHeld(err))
}

func TestRelease_NilLockIsNoop(t *testing.T) {
	var l *lock.Lock
	assert.NoError(t, l.Release())
}
