package stamfs

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Domain errors surfaced to the VFS-adapter caller.
var (
	// ErrNameTooLong is returned when a name exceeds MaxNameLen bytes.
	ErrNameTooLong = errors.New("stamfs: name too long")
	// ErrNotExist is returned when a directory entry is missing.
	ErrNotExist = errors.New("stamfs: no such entry")
	// ErrNotEmpty is returned by rmdir on a non-empty directory.
	ErrNotEmpty = errors.New("stamfs: directory not empty")
	// ErrNoSpace is returned when no free block, inode, or directory slot remains.
	ErrNoSpace = errors.New("stamfs: no space left")
	// ErrInodeLoad is returned when the adapter fails to load an inode.
	ErrInodeLoad = errors.New("stamfs: inode load failed")
	// ErrPermission is returned by unsupported operations (e.g. rename).
	ErrPermission = errors.New("stamfs: operation not permitted")
	// ErrIO is wrapped around any failed block read/write.
	ErrIO = errors.New("stamfs: I/O error")
	// ErrNoMemory is returned when in-memory metadata cannot be allocated.
	ErrNoMemory = errors.New("stamfs: out of memory")
	// ErrCorrupt is returned when the superblock magic does not match.
	ErrCorrupt = errors.New("stamfs: corrupt filesystem (bad magic)")
)

func ioErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIO}, args...)...)
}

// fatalf reports a programmer-error-class invariant violation. These
// correspond to the original's BUG()/kernel-panic class: releasing a
// reserved block, releasing the root inode, or a free-list overflow. There
// is no safe way to continue, so the process aborts the same way a kernel
// module's BUG() would.
func fatalf(format string, args ...any) {
	logrus.Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
