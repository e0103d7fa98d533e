//go:build !linux

package stamfs

import "os"

// deviceSize reports the usable size of f in bytes. Outside Linux, block
// devices reliably report their size via stat, so no ioctl is needed.
func deviceSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
