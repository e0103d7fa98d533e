//go:build xz

package stamfs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	imageCodecs[".xz"] = decodeXz
}

func decodeXz(r io.Reader) ([]byte, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(xr)
}
