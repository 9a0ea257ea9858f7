package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Decompress wraps r in a decompressor chosen by the file name suffix and
// returns the name with that suffix removed. Unknown suffixes pass r through.
func Decompress(name string, r io.Reader) (io.ReadCloser, string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	inner := strings.TrimSuffix(name, filepath.Ext(name))

	switch ext {
	case ".gz", ".gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		return zr, inner, nil
	case ".zst", ".zstd":
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, "", fmt.Errorf("zstd: %w", err)
		}
		return zstdCloser{zr}, inner, nil
	case ".br":
		return io.NopCloser(brotli.NewReader(r)), inner, nil
	default:
		return io.NopCloser(r), name, nil
	}
}

// zstd.Decoder.Close has no error result
type zstdCloser struct {
	*zstd.Decoder
}

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}
