//go:build linux

package stamfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// deviceSize reports the usable size of f in bytes. Regular files report
// their stat size; block devices report zero from stat on Linux, so the
// real capacity is read via the BLKGETSIZE64 ioctl instead. Grounded on
// original_source/utils/mkstamfs.c's check_dev, which needs this same
// distinction between a block device and a regular file.
func deviceSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	if fi.Mode()&os.ModeDevice == 0 {
		return fi.Size(), nil
	}

	size, err := unix.IoctlGetUint64(int(f.Fd()), unix.BLKGETSIZE64)
	if err != nil {
		if fi.Size() > 0 {
			return fi.Size(), nil
		}
		return 0, fmt.Errorf("stamfs: BLKGETSIZE64 on %s: %w", f.Name(), err)
	}
	return int64(size), nil
}
