package detect

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// PadValue: серый фон паддинга, как в ultralytics (114/255).
const PadValue = float32(114) / 255

// LetterboxCHW вписывает img в планарный RGB-тензор size×size со значениями
// в [0,1], сохраняя пропорции; поля заливаются PadValue.
func LetterboxCHW(img image.Image, size int, dst []float32) (Letterbox, error) {
	plane := size * size
	if len(dst) < 3*plane {
		return Letterbox{}, fmt.Errorf("tensor holds %d floats, needs %d", len(dst), 3*plane)
	}
	b := img.Bounds()
	if b.Empty() {
		return Letterbox{}, fmt.Errorf("empty image")
	}
	lb := NewLetterbox(b.Dx(), b.Dy(), size)
	nw, nh := lb.Inner()
	resized := resize.Resize(uint(nw), uint(nh), img, resize.Bilinear)

	for i := 0; i < 3*plane; i++ {
		dst[i] = PadValue
	}
	red, green, blue := dst[:plane], dst[plane:2*plane], dst[2*plane:3*plane]

	px, py := int(lb.PadX), int(lb.PadY)
	rb := resized.Bounds()
	for y := 0; y < nh && y < rb.Dy(); y++ {
		for x := 0; x < nw && x < rb.Dx(); x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			i := (py+y)*size + px + x
			red[i] = float32(r>>8) / 255
			green[i] = float32(g>>8) / 255
			blue[i] = float32(bl>>8) / 255
		}
	}
	return lb, nil
}
