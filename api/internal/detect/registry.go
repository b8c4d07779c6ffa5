package detect

import (
	"errors"
	"fmt"
	"strings"
)

// Kind: одна из трёх предзагруженных моделей.
type Kind int

const (
	KindWaste Kind = iota
	KindEWaste
	KindMixed
)

// ModelUsed: значение поля "model_used" в ответе.
func (k Kind) ModelUsed() string {
	switch k {
	case KindMixed:
		return "YOLOv8 (Mixed Waste)"
	case KindEWaste:
		return "YOLOv8 (E-waste)"
	default:
		return "YOLOv5 (Waste)"
	}
}

func (k Kind) String() string {
	switch k {
	case KindMixed:
		return "mixed"
	case KindEWaste:
		return "ewaste"
	default:
		return "waste"
	}
}

// SelectKind выбирает модель по подстроке в метке классификации.
// Пустая или незнакомая метка даёт KindWaste.
func SelectKind(label string) Kind {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "mixed"),
		strings.Contains(l, "e-waste") && strings.Contains(l, "non-biodegradable"):
		return KindMixed
	case strings.Contains(l, "e-waste"):
		return KindEWaste
	default:
		return KindWaste
	}
}

// Registry владеет тремя детекторами на всё время жизни процесса.
type Registry struct {
	Waste  Detector
	EWaste Detector
	Mixed  Detector
}

// Pick возвращает вид модели и детектор для метки.
func (r *Registry) Pick(label string) (Kind, Detector, error) {
	k := SelectKind(label)
	var d Detector
	switch k {
	case KindMixed:
		d = r.Mixed
	case KindEWaste:
		d = r.EWaste
	default:
		d = r.Waste
	}
	if d == nil {
		return k, nil, fmt.Errorf("detector %s is not loaded", k)
	}
	return k, d, nil
}

func (r *Registry) Close() error {
	var errs []error
	for _, d := range []Detector{r.Waste, r.EWaste, r.Mixed} {
		if d == nil {
			continue
		}
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}
