package detect

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLetterbox(t *testing.T) {
	lb := NewLetterbox(1280, 640, 640)
	assert.InDelta(t, 0.5, lb.Scale, 1e-6)
	assert.InDelta(t, 0, lb.PadX, 1e-6)
	assert.InDelta(t, 160, lb.PadY, 1e-6)
	w, h := lb.Inner()
	assert.Equal(t, 640, w)
	assert.Equal(t, 320, h)

	box := lb.toImage(320, 320, 100, 100)
	assert.Equal(t, image.Rect(540, 220, 740, 420), box)
}

func TestNewLetterbox_ExtremeAspect(t *testing.T) {
	w, h := NewLetterbox(1, 3000, 640).Inner()
	assert.Equal(t, 1, w)
	assert.Equal(t, 640, h)

	lb := NewLetterbox(3000, 1, 640)
	w, h = lb.Inner()
	assert.Equal(t, 640, w)
	assert.Equal(t, 1, h)
	assert.InDelta(t, 319, lb.PadY, 1e-6)
}

func TestLetterbox_ClampsToImage(t *testing.T) {
	lb := NewLetterbox(640, 640, 640)
	box := lb.toImage(10, 10, 100, 100)
	assert.Equal(t, image.Rect(0, 0, 60, 60), box)
}

func TestDecodeV8(t *testing.T) {
	const anchors = 3
	out := []float32{
		// cx, cy, w, h
		100, 0, 300,
		100, 0, 200,
		50, 0, 100,
		50, 0, 40,
		// class scores
		0.9, 0.1, 0.0,
		0.1, 0.2, 0.6,
	}
	lb := NewLetterbox(640, 640, 640)
	dets := DecodeV8(out, 2, anchors, lb, 0.25, []string{"battery", "phone"})
	require.Len(t, dets, 2)

	assert.Equal(t, "battery", dets[0].Label)
	assert.Equal(t, image.Rect(75, 75, 125, 125), dets[0].Box)
	assert.InDelta(t, 0.9, dets[0].Score, 1e-6)

	assert.Equal(t, "phone", dets[1].Label)
	assert.Equal(t, 1, dets[1].ClassID)
	assert.Equal(t, image.Rect(250, 180, 350, 220), dets[1].Box)
}

func TestDecodeV8_ShortBuffer(t *testing.T) {
	assert.Nil(t, DecodeV8(make([]float32, 5), 2, 3, NewLetterbox(10, 10, 10), 0.25, nil))
}

func TestDecodeV5(t *testing.T) {
	out := []float32{
		100, 100, 50, 50, 0.8, 0.9, 0.1,
		200, 200, 50, 50, 0.2, 0.9, 0.1,
		300, 300, 50, 50, 0.9, 0.1, 0.2,
	}
	dets := DecodeV5(out, 3, 2, NewLetterbox(640, 640, 640), 0.25, []string{"plastic"})
	require.Len(t, dets, 1)
	assert.Equal(t, "plastic", dets[0].Label)
	assert.InDelta(t, 0.72, dets[0].Score, 1e-6)
	assert.Equal(t, image.Rect(75, 75, 125, 125), dets[0].Box)
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	b := image.Rect(5, 0, 15, 10)
	assert.InDelta(t, 1.0/3.0, IoU(a, b), 1e-6)
	assert.Zero(t, IoU(a, image.Rect(20, 20, 30, 30)))
	assert.InDelta(t, 1.0, IoU(a, a), 1e-6)
}

func TestNMS(t *testing.T) {
	dets := []Detection{
		{Label: "can", ClassID: 0, Score: 0.6, Box: image.Rect(1, 1, 101, 101)},
		{Label: "can", ClassID: 0, Score: 0.9, Box: image.Rect(0, 0, 100, 100)},
		{Label: "bottle", ClassID: 1, Score: 0.7, Box: image.Rect(0, 0, 100, 100)},
		{Label: "can", ClassID: 0, Score: 0.5, Box: image.Rect(300, 300, 350, 350)},
	}
	kept := NMS(dets, 0.35)
	require.Len(t, kept, 3)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, "bottle", kept[1].Label)
	assert.Equal(t, image.Rect(300, 300, 350, 350), kept[2].Box)

	assert.Nil(t, NMS(nil, 0.5))
}

func TestResultLabels(t *testing.T) {
	assert.Equal(t, []string{}, Result{}.Labels())
	r := Result{Objects: []Detection{{Label: "a"}, {Label: "b"}}}
	assert.Equal(t, []string{"a", "b"}, r.Labels())
}
