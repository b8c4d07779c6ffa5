// Package cvyolo запускает ONNX-экспорты YOLOv5 через модуль DNN OpenCV.
package cvyolo

import (
	"context"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"smartseg/api/internal/detect"
	"smartseg/api/internal/render"
)

// Дефолты YOLOv5 hub, для этой модели фиксированы.
const (
	confidence   = float32(0.25)
	iouThreshold = float32(0.45)
)

type Config struct {
	Name       string
	ModelPath  string
	LabelsPath string
	InputSize  int
}

type Detector struct {
	name  string
	names []string
	size  int

	run detect.Exclusive
	net gocv.Net
}

func New(cfg Config) (*Detector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, errors.Errorf("%s: model file not found: %s", cfg.Name, cfg.ModelPath)
	}
	names, err := detect.LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: labels", cfg.Name)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, errors.Errorf("%s: failed to load network %s", cfg.Name, cfg.ModelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		_ = net.Close()
		return nil, errors.Errorf("%s: failed to set preferable backend or target", cfg.Name)
	}

	log.Printf("detector %s loaded: %s (%d classes, input %d)", cfg.Name, cfg.ModelPath, len(names), cfg.InputSize)
	return &Detector{name: cfg.Name, names: names, size: cfg.InputSize, net: net}, nil
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

	lb := detect.NewLetterbox(mat.Cols(), mat.Rows(), d.size)
	boxed, err := letterbox(mat, lb, d.size)
	if err != nil {
		return detect.Result{}, errors.Wrap(err, d.name)
	}
	defer boxed.Close()

	blob := gocv.BlobFromImage(boxed, 1.0/255.0, image.Pt(d.size, d.size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	// [1, rows, 5+classes]
	var dims []int
	data, err := d.run.Run(func() ([]float32, func(), error) {
		d.net.SetInput(blob, "")
		out := d.net.Forward("")
		release := func() { _ = out.Close() }
		dims = out.Size()
		if len(dims) != 3 || dims[2] <= 5 {
			return nil, release, errors.Errorf("%s: unexpected output shape %v", d.name, dims)
		}
		raw, err := out.DataPtrFloat32()
		if err != nil {
			return nil, release, errors.Wrapf(err, "%s: read output", d.name)
		}
		return raw, release, nil
	})
	if err != nil {
		return detect.Result{}, err
	}
	dets := detect.NMS(detect.DecodeV5(data, dims[1], dims[2]-5, lb, confidence, d.names), iouThreshold)

	annotated, err := render.Annotate(&mat, dets)
	if err != nil {
		return detect.Result{}, errors.Wrap(err, d.name)
	}
	return detect.Result{Objects: dets, Annotated: annotated}, nil
}

func letterbox(src gocv.Mat, lb detect.Letterbox, size int) (gocv.Mat, error) {
	nw, nh := lb.Inner()
	resized := gocv.NewMat()
	defer resized.Close()
	if err := gocv.Resize(src, &resized, image.Pt(nw, nh), 0, 0, gocv.InterpolationLinear); err != nil {
		return gocv.NewMat(), errors.Wrap(err, "resize")
	}
	top, left := int(lb.PadY), int(lb.PadX)
	dst := gocv.NewMat()
	grey := color.RGBA{R: 114, G: 114, B: 114, A: 0}
	if err := gocv.CopyMakeBorder(resized, &dst, top, size-nh-top, left, size-nw-left, gocv.BorderConstant, grey); err != nil {
		dst.Close()
		return gocv.NewMat(), errors.Wrap(err, "pad")
	}
	return dst, nil
}

func (d *Detector) Close() error {
	d.run.Lock()
	defer d.run.Unlock()
	return d.net.Close()
}
