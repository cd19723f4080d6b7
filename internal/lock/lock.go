// Package lock guards the on-disk index directory, the only resource
// shared across invocations of this single-writer system. A write-bearing
// operation holds an exclusive lock for its lifetime; a read-only
// operation holds a shared lock.
package lock

import (
	"os"
	"path/filepath"

	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
	"golang.org/x/sys/unix"
)

const sentinelName = ".helix.lock"

// Lock wraps a file-lock on a sentinel file inside the index directory.
type Lock struct {
	file *os.File
}

// AcquireExclusive blocks writers and readers alike out of dir for the
// lifetime of the returned Lock. Call Release when the write-bearing
// operation completes.
func AcquireExclusive(dir string) (*Lock, error) {
	return acquire(dir, unix.LOCK_EX)
}

// AcquireShared permits concurrent readers but excludes any exclusive
// holder. Call Release when the read-only operation completes.
func AcquireShared(dir string) (*Lock, error) {
	return acquire(dir, unix.LOCK_SH)
}

func acquire(dir string, how int) (*Lock, error) {
	path := filepath.Join(dir, sentinelName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeLockFailure, "cannot open lock sentinel", helixerr.FieldPath(path))
	}

	if err := unix.Flock(int(f.Fd()), how|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, helixerr.New(helixerr.CodeLockHeld, "index is locked by another process", helixerr.FieldPath(path))
		}
		return nil, helixerr.Wrap(err, helixerr.CodeLockFailure, "flock failed", helixerr.FieldPath(path))
	}

	return &Lock{file: f}, nil
}

// Release drops the lock and closes the sentinel file handle.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		return helixerr.Wrap(err, helixerr.CodeLockFailure, "unlock failed")
	}
	return l.file.Close()
}
