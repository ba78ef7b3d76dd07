package dedup

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	got, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
}

func TestFileSHA256_MissingFile(t *testing.T) {
	_, err := FileSHA256(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestComputeImageHashes_SkipsPDF(t *testing.T) {
	got, err := ComputeImageHashes("/some/where/invoice.pdf")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestComputeImageHashes_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "receipt.png")
	writeTestPNG(t, path)

	got, err := ComputeImageHashes(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.AverageHash, 16)
	assert.Len(t, got.PerceptualHash, 16)

	// the same pixels always fingerprint identically
	again, err := ComputeImageHashes(path)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Zero(t, HammingDistance(got.PerceptualHash, again.PerceptualHash))
}

func TestComputeImageHashes_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))

	_, err := ComputeImageHashes(path)
	assert.Error(t, err)
}

func TestHammingDistance(t *testing.T) {
	assert.Equal(t, 0, HammingDistance("aabbccdd00112233", "aabbccdd00112233"))
	assert.Equal(t, 1, HammingDistance("aabbccdd00112233", "aabbccdd00112234"))
	assert.Equal(t, 16, HammingDistance("0000000000000000", "ffffffffffffffff"))
}

func TestHammingDistance_LengthMismatchSentinel(t *testing.T) {
	assert.Equal(t, 999, HammingDistance("abc", "abcd"))
	assert.Equal(t, 999, HammingDistance("", "abcd"))
}

func TestHammingDistance_Symmetric(t *testing.T) {
	a, b := "aabbccdd00112233", "ffbbccdd00112299"
	assert.Equal(t, HammingDistance(a, b), HammingDistance(b, a))
}
