package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"

	"github.com/corona10/goimagehash"

	"github.com/expscan/expscan/constants"
	"github.com/expscan/expscan/internal/entity"
)

// sentinelDistance is returned when two fingerprints cannot be compared.
const sentinelDistance = 999

// FileSHA256 streams the file through SHA-256 and returns the hex digest.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeImageHashes returns the average and perceptual hash of an image
// file, each as 16 hex characters. PDFs are not rasterized here, so the
// visual check is skipped for them: both return values are nil.
func ComputeImageHashes(path string) (*entity.ImageHashes, error) {
	if constants.MapExtToFormat(filepath.Ext(path)) == constants.PDF {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	avg, err := goimagehash.AverageHash(img)
	if err != nil {
		return nil, fmt.Errorf("average hash: %w", err)
	}
	per, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, fmt.Errorf("perceptual hash: %w", err)
	}

	return &entity.ImageHashes{
		AverageHash:    fmt.Sprintf("%016x", avg.GetHash()),
		PerceptualHash: fmt.Sprintf("%016x", per.GetHash()),
	}, nil
}

// HammingDistance counts differing characters at corresponding positions
// of two hex-encoded fingerprints. Mismatched lengths short-circuit to
// the sentinel 999.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return sentinelDistance
	}
	dist := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			dist++
		}
	}
	return dist
}
