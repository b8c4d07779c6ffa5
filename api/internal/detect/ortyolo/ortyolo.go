// Package ortyolo запускает ONNX-экспорты YOLOv8 (ultralytics) через ONNX Runtime.
package ortyolo

import (
	"context"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"smartseg/api/internal/detect"
	"smartseg/api/internal/render"
)

// Пороги для всех моделей YOLOv8.
const (
	Confidence   = float32(0.25)
	IoUThreshold = float32(0.35)
)

type Config struct {
	Name       string
	ModelPath  string
	LabelsPath string
	InputSize  int
}

type Detector struct {
	name       string
	names      []string
	size       int
	numAnchors int

	run     detect.Exclusive
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

var envOnce sync.Once
var envErr error

// InitEnvironment загружает библиотеку ONNX Runtime один раз на процесс.
func InitEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath != "" {
			if _, err := os.Stat(libPath); err != nil {
				envErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
				return
			}
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "initialize onnxruntime")
		}
	})
	return envErr
}

// DestroyEnvironment освобождает рантайм после закрытия всех детекторов.
func DestroyEnvironment() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// anchorCount: число предсказаний YOLOv8 для квадратного входа (страйды 8/16/32).
func anchorCount(size int) int {
	n := 0
	for _, s := range []int{8, 16, 32} {
		n += (size / s) * (size / s)
	}
	return n
}

func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.Errorf("%s: model file not found: %s", cfg.Name, cfg.ModelPath)
	}
	names, err := detect.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: labels", cfg.Name)
	}

	d := &Detector{
		name:       cfg.Name,
		names:      names,
		size:       cfg.InputSize,
		numAnchors: anchorCount(cfg.InputSize),
	}

	in, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(d.size), int64(d.size)))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: input tensor", cfg.Name)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(names)), int64(d.numAnchors)))
	if err != nil {
		in.Destroy()
		return nil, errors.Wrapf(err, "%s: output tensor", cfg.Name)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, errors.Wrapf(err, "%s: session options", cfg.Name)
	}
	defer opts.Destroy()
	_ = opts.SetIntraOpNumThreads(4)
	_ = opts.SetInterOpNumThreads(1)
	_ = opts.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.ArbitraryTensor{in}, []ort.ArbitraryTensor{out}, opts)
	if err != nil {
		in.Destroy()
		out.Destroy()
		return nil, errors.Wrapf(err, "%s: create session", cfg.Name)
	}
	d.session, d.input, d.output = session, in, out

	log.Printf("detector %s loaded: %s (%d classes, input %d)", d.name, cfg.ModelPath, len(names), d.size)
	return d, nil
}

func (d *Detector) Name() string { return d.name }

func (d *Detector) Detect(ctx context.Context, img []byte) (detect.Result, error) {
	if err := ctx.Err(); err != nil {
		return detect.Result{}, err
	}
	mat, err := render.Decode(img)
	if err != nil {
		return detect.Result{}, err
	}
	defer mat.Close()

	src, err := mat.ToImage()
	if err != nil {
		return detect.Result{}, errors.Wrapf(err, "%s: mat to image", d.name)
	}

	var lb detect.Letterbox
	raw, err := d.run.Run(func() ([]float32, func(), error) {
		var err error
		lb, err = detect.LetterboxCHW(src, d.size, d.input.GetData())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "%s: preprocess", d.name)
		}
		if err := d.session.Run(); err != nil {
			return nil, nil, errors.Wrapf(err, "%s: inference", d.name)
		}
		return d.output.GetData(), nil, nil
	})
	if err != nil {
		return detect.Result{}, err
	}

	dets := detect.NMS(detect.DecodeV8(raw, len(d.names), d.numAnchors, lb, Confidence, d.names), IoUThreshold)
	annotated, err := render.Annotate(&mat, dets)
	if err != nil {
		return detect.Result{}, errors.Wrap(err, d.name)
	}
	return detect.Result{Objects: dets, Annotated: annotated}, nil
}

func (d *Detector) Close() error {
	d.run.Lock()
	defer d.run.Unlock()
	var err error
	if d.session != nil {
		err = d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return err
}
