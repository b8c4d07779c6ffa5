package detect

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetterboxCHW(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, A: 255})

	const size = 4
	dst := make([]float32, 3*size*size)
	lb, err := LetterboxCHW(img, size, dst)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, lb.Scale, 1e-6)
	assert.InDelta(t, 0, lb.PadX, 1e-6)
	assert.InDelta(t, 1, lb.PadY, 1e-6)

	plane := size * size
	// padded top row
	assert.InDelta(t, PadValue, dst[0], 1e-6)
	assert.InDelta(t, PadValue, dst[plane+0], 1e-6)
	// image rows 1..2 are red
	assert.InDelta(t, 1.0, dst[1*size+0], 0.02)
	assert.InDelta(t, 0.0, dst[plane+1*size+0], 0.02)
	assert.InDelta(t, 0.0, dst[2*plane+2*size+3], 0.02)
	// padded bottom row
	assert.InDelta(t, PadValue, dst[3*size+3], 1e-6)
}

func TestLetterboxCHW_SmallTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	_, err := LetterboxCHW(img, 4, make([]float32, 10))
	require.Error(t, err)
}

func TestLetterboxCHW_ThinStrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3000, 1))
	for x := 0; x < 3000; x++ {
		img.Set(x, 0, color.RGBA{B: 255, A: 255})
	}
	const size = 8
	dst := make([]float32, 3*size*size)
	lb, err := LetterboxCHW(img, size, dst)
	require.NoError(t, err)
	w, h := lb.Inner()
	assert.Equal(t, size, w)
	assert.Equal(t, 1, h)

	plane := size * size
	row := int(lb.PadY)
	assert.InDelta(t, 1.0, dst[2*plane+row*size], 0.02)
	assert.InDelta(t, PadValue, dst[2*plane], 1e-6)
}
