package detect

import (
	"image"
	"sort"

	"github.com/chewxy/math32"
)

// Letterbox: как исходное изображение вписано в квадратный вход модели.
type Letterbox struct {
	Scale      float32
	PadX, PadY float32
	SrcW, SrcH int
}

// NewLetterbox считает масштаб и поля для вписывания w×h в size×size
// с сохранением пропорций.
func NewLetterbox(w, h, size int) Letterbox {
	if w <= 0 || h <= 0 || size <= 0 {
		return Letterbox{Scale: 1, SrcW: w, SrcH: h}
	}
	scale := math32.Min(float32(size)/float32(w), float32(size)/float32(h))
	nw, nh := innerPx(w, scale), innerPx(h, scale)
	return Letterbox{
		Scale: scale,
		PadX:  float32((size - nw) / 2),
		PadY:  float32((size - nh) / 2),
		SrcW:  w,
		SrcH:  h,
	}
}

// Inner: размер уменьшенного изображения внутри входа модели, не меньше 1x1.
func (lb Letterbox) Inner() (int, int) {
	return innerPx(lb.SrcW, lb.Scale), innerPx(lb.SrcH, lb.Scale)
}

// innerPx округляет сторону вверх от половины; очень вытянутые кадры
// не схлопываются в 0 пикселей.
func innerPx(n int, scale float32) int {
	return max(1, int(math32.Floor(float32(n)*scale+0.5)))
}

// toImage переводит бокс (центр, размер) из координат входа модели в исходное изображение.
func (lb Letterbox) toImage(cx, cy, w, h float32) image.Rectangle {
	x1 := (cx - w/2 - lb.PadX) / lb.Scale
	y1 := (cy - h/2 - lb.PadY) / lb.Scale
	x2 := (cx + w/2 - lb.PadX) / lb.Scale
	y2 := (cy + h/2 - lb.PadY) / lb.Scale
	r := image.Rect(int(x1), int(y1), int(x2), int(y2)).Canon()
	return r.Intersect(image.Rect(0, 0, lb.SrcW, lb.SrcH))
}

// DecodeV8 декодирует голову YOLOv8 (ultralytics): форма [1, 4+numClasses, numAnchors],
// по каналам, без objectness.
func DecodeV8(out []float32, numClasses, numAnchors int, lb Letterbox, conf float32, names []string) []Detection {
	if numClasses <= 0 || numAnchors <= 0 || len(out) < (4+numClasses)*numAnchors {
		return nil
	}
	var dets []Detection
	for i := 0; i < numAnchors; i++ {
		best, cls := float32(-1), -1
		for c := 0; c < numClasses; c++ {
			if s := out[(4+c)*numAnchors+i]; s > best {
				best, cls = s, c
			}
		}
		if best < conf {
			continue
		}
		box := lb.toImage(out[i], out[numAnchors+i], out[2*numAnchors+i], out[3*numAnchors+i])
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{Label: ClassName(names, cls), ClassID: cls, Score: best, Box: box})
	}
	return dets
}

// DecodeV5 декодирует голову YOLOv5: форма [1, numRows, 5+numClasses],
// по строкам, objectness в индексе 4.
func DecodeV5(out []float32, numRows, numClasses int, lb Letterbox, conf float32, names []string) []Detection {
	rowLen := 5 + numClasses
	if numClasses <= 0 || numRows <= 0 || len(out) < numRows*rowLen {
		return nil
	}
	var dets []Detection
	for i := 0; i < numRows; i++ {
		row := out[i*rowLen : (i+1)*rowLen]
		obj := row[4]
		if obj < conf {
			continue
		}
		best, cls := float32(-1), -1
		for c := 0; c < numClasses; c++ {
			if s := row[5+c]; s > best {
				best, cls = s, c
			}
		}
		score := obj * best
		if score < conf {
			continue
		}
		box := lb.toImage(row[0], row[1], row[2], row[3])
		if box.Empty() {
			continue
		}
		dets = append(dets, Detection{Label: ClassName(names, cls), ClassID: cls, Score: score, Box: box})
	}
	return dets
}

// IoU двух прямоугольников.
func IoU(a, b image.Rectangle) float32 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float32(inter.Dx() * inter.Dy())
	union := float32(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}

// NMS: жадное подавление немаксимумов внутри класса. Результат отсортирован
// по убыванию score.
func NMS(dets []Detection, iouThreshold float32) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	used := make([]bool, len(sorted))
	kept := make([]Detection, 0, len(sorted))
	for i := range sorted {
		if used[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if used[j] || sorted[j].ClassID != sorted[i].ClassID {
				continue
			}
			if IoU(sorted[i].Box, sorted[j].Box) > iouThreshold {
				used[j] = true
			}
		}
	}
	return kept
}
