package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyImage(width, height int) image.Image {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	return img
}

func encodePNGBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompressPassthroughWithinBudget(t *testing.T) {
	data := encodePNGBytes(t, noisyImage(32, 32))
	c := NewCompressor(1920, 1<<20)

	result, err := c.Compress(data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, data, result.Data)
	assert.Equal(t, "image/png", result.MIME)
	assert.Equal(t, 32, result.Width)
	assert.Equal(t, 32, result.Height)
}

func TestCompressFitsOversizedImage(t *testing.T) {
	data := encodePNGBytes(t, noisyImage(400, 200))
	c := NewCompressor(100, 1<<20)

	result, err := c.Compress(data, "image/png")
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(result.Data))
	require.NoError(t, err)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), 100)
	assert.LessOrEqual(t, decoded.Bounds().Dy(), 100)
}

func TestCompressJPEGMeetsByteBudget(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, noisyImage(800, 800), &jpeg.Options{Quality: 100}))
	c := NewCompressor(1920, 40*1024)

	result, err := c.Compress(buf.Bytes(), "image/jpeg")
	require.NoError(t, err)
	assert.Less(t, len(result.Data), buf.Len())
	assert.Equal(t, "image/jpeg", result.MIME)
}

func TestCompressRejectsNonImage(t *testing.T) {
	c := NewCompressor(1920, 1<<20)
	_, err := c.Compress([]byte("not an image"), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}
