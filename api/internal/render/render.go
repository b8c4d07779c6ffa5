// Package render рисует детекции на изображениях через OpenCV.
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"smartseg/api/internal/detect"
)

// palette: цвет по id класса, у каждого класса свой постоянный цвет.
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56},
	{R: 255, G: 157, B: 151},
	{R: 255, G: 112, B: 31},
	{R: 255, G: 178, B: 29},
	{R: 207, G: 210, B: 49},
	{R: 72, G: 249, B: 10},
	{R: 146, G: 204, B: 23},
	{R: 61, G: 219, B: 134},
	{R: 26, G: 147, B: 52},
	{R: 0, G: 212, B: 187},
	{R: 44, G: 153, B: 168},
	{R: 0, G: 194, B: 255},
	{R: 52, G: 69, B: 147},
	{R: 100, G: 115, B: 255},
	{R: 0, G: 24, B: 236},
	{R: 132, G: 56, B: 255},
}

func classColor(id int) color.RGBA {
	if id < 0 {
		id = -id
	}
	c := palette[id%len(palette)]
	// gocv ждёт порядок BGR в структуре RGBA
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: 0}
}

// Annotate рисует боксы и подписи "label score" прямо на mat и
// возвращает JPEG.
func Annotate(mat *gocv.Mat, dets []detect.Detection) ([]byte, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("annotate: empty image")
	}
	thickness := max(2, (mat.Cols()+mat.Rows())/600)
	scale := float64(thickness) / 3

	for _, d := range dets {
		c := classColor(d.ClassID)
		if err := gocv.Rectangle(mat, d.Box, c, thickness); err != nil {
			return nil, fmt.Errorf("draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s %.2f", d.Label, d.Score)
		ts := gocv.GetTextSize(label, gocv.FontHersheySimplex, scale, 1)
		top := d.Box.Min.Y - ts.Y - 6
		if top < 0 {
			top = d.Box.Min.Y
		}
		bg := image.Rect(d.Box.Min.X, top, d.Box.Min.X+ts.X+4, top+ts.Y+6)
		if err := gocv.Rectangle(mat, bg, c, -1); err != nil {
			return nil, fmt.Errorf("draw label background: %w", err)
		}
		white := color.RGBA{R: 255, G: 255, B: 255, A: 0}
		if err := gocv.PutText(mat, label, image.Pt(bg.Min.X+2, bg.Max.Y-4), gocv.FontHersheySimplex, scale, white, 1); err != nil {
			return nil, fmt.Errorf("draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Decode читает закодированное изображение (JPEG/PNG/WebP/BMP) в BGR Mat.
func Decode(img []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return mat, fmt.Errorf("decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), fmt.Errorf("decode image: unsupported or corrupt data")
	}
	return mat, nil
}
