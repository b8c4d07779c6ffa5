// Package detect: не зависящая от рантайма часть детекции: типы результата,
// декодирование выхода YOLO, NMS и выбор модели по метке.
package detect

import (
	"context"
	"image"
)

// Detection: один бокс после NMS, в пикселях исходного изображения.
type Detection struct {
	Label   string
	ClassID int
	Score   float32
	Box     image.Rectangle
}

// Result: ответ Detector на одно изображение.
type Result struct {
	Objects   []Detection
	Annotated []byte // JPEG с нарисованными боксами
}

// Labels: имена классов в порядке детекций, никогда не nil.
func (r Result) Labels() []string {
	out := make([]string, 0, len(r.Objects))
	for _, d := range r.Objects {
		out = append(out, d.Label)
	}
	return out
}

// Detector: одна предобученная модель.
type Detector interface {
	Name() string
	Detect(ctx context.Context, img []byte) (Result, error)
	Close() error
}
