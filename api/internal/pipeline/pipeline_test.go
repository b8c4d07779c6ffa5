package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartseg/api/internal/classify"
	"smartseg/api/internal/detect"
	"smartseg/api/internal/store"
)

type stubClassifier struct {
	res   classify.Result
	err   error
	calls int
}

func (s *stubClassifier) Name() string     { return "stub" }
func (s *stubClassifier) GetModel() string { return "stub-1" }
func (s *stubClassifier) Classify(context.Context, []byte) (classify.Result, error) {
	s.calls++
	return s.res, s.err
}

type stubDetector struct {
	name  string
	res   detect.Result
	err   error
	calls int
}

func (d *stubDetector) Name() string { return d.name }
func (d *stubDetector) Detect(context.Context, []byte) (detect.Result, error) {
	d.calls++
	return d.res, d.err
}
func (d *stubDetector) Close() error { return nil }

type memFiles struct {
	uploads map[string][]byte
	outputs map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{uploads: map[string][]byte{}, outputs: map[string][]byte{}}
}

func (m *memFiles) SaveUpload(_ string, data []byte) (string, error) {
	m.uploads["u.jpg"] = data
	return "u.jpg", nil
}
func (m *memFiles) SaveOutput(jpeg []byte) (string, error) {
	m.outputs["o.jpg"] = jpeg
	return "o.jpg", nil
}
func (m *memFiles) UploadURL(n string) string { return "http://h/static/uploads/" + n }
func (m *memFiles) OutputURL(n string) string { return "http://h/static/output/" + n }

type memHistory struct{ rows []store.Detection }

func (h *memHistory) Insert(_ context.Context, d store.Detection) error {
	h.rows = append(h.rows, d)
	return nil
}

func boolPtr(b bool) *bool { return &b }
func strPtr(s string) *string { return &s }
func det(label string) detect.Detection {
	return detect.Detection{Label: label, Score: 0.9, Box: image.Rect(0, 0, 10, 10)}
}

type fixture struct {
	cls                  *stubClassifier
	waste, ewaste, mixed *stubDetector
	files                *memFiles
	hist                 *memHistory
	svc                  *Service
}

func newFixture(res classify.Result, clsErr error) *fixture {
	f := &fixture{
		cls:    &stubClassifier{res: res, err: clsErr},
		waste:  &stubDetector{name: "waste", res: detect.Result{Objects: []detect.Detection{det("plastic")}, Annotated: []byte("w")}},
		ewaste: &stubDetector{name: "ewaste", res: detect.Result{Objects: []detect.Detection{det("phone"), det("cable")}, Annotated: []byte("e")}},
		mixed:  &stubDetector{name: "mixed", res: detect.Result{Objects: []detect.Detection{det("battery")}, Annotated: []byte("m")}},
		files:  newMemFiles(),
		hist:   &memHistory{},
	}
	reg := &detect.Registry{Waste: f.waste, EWaste: f.ewaste, Mixed: f.mixed}
	f.svc = New(f.cls, reg, f.files, f.hist)
	return f
}

func TestRun_NotWaste(t *testing.T) {
	f := newFixture(classify.Result{
		IsWaste:        boolPtr(false),
		WasteType:      strPtr("Not Waste"),
		Description:    "a cat",
		DisposalAdvice: "keep it",
	}, nil)

	resp, err := f.svc.Run(context.Background(), Input{Filename: "cat.jpg", Data: []byte("img")})
	require.NoError(t, err)

	assert.Nil(t, resp.OutputImageURL)
	assert.Nil(t, resp.ModelUsed)
	assert.Equal(t, []string{}, resp.DetectedObjects)
	assert.Equal(t, NotWasteMessage, resp.Message)
	assert.Equal(t, "keep it", resp.FinalAdvice)
	assert.Equal(t, "http://h/static/uploads/u.jpg", resp.UploadedImageURL)
	assert.Zero(t, f.waste.calls+f.ewaste.calls+f.mixed.calls)

	js, err := json.Marshal(resp)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(js, &m))
	assert.Nil(t, m["output_image_url"])
	assert.Nil(t, m["model_used"])
	assert.Equal(t, []any{}, m["detected_objects"])
	assert.Equal(t, "The object is not waste.", m["message"])
}

func TestRun_Routing(t *testing.T) {
	cases := []struct {
		label     string
		modelUsed string
		objects   []string
	}{
		{"Mixed Waste", "YOLOv8 (Mixed Waste)", []string{"battery"}},
		{"E-waste", "YOLOv8 (E-waste)", []string{"phone", "cable"}},
		{"E-waste, Non-Biodegradable Waste", "YOLOv8 (Mixed Waste)", []string{"battery"}},
		{"BioDegradable Waste", "YOLOv5 (Waste)", []string{"plastic"}},
	}
	for _, tc := range cases {
		t.Run(tc.label, func(t *testing.T) {
			f := newFixture(classify.Result{IsWaste: boolPtr(true), WasteType: strPtr(tc.label), DisposalAdvice: "bin"}, nil)
			resp, err := f.svc.Run(context.Background(), Input{Filename: "x.jpg", Data: []byte("img")})
			require.NoError(t, err)
			require.NotNil(t, resp.ModelUsed)
			assert.Equal(t, tc.modelUsed, *resp.ModelUsed)
			assert.Equal(t, tc.objects, resp.DetectedObjects)
			require.NotNil(t, resp.OutputImageURL)
			assert.Equal(t, "http://h/static/output/o.jpg", *resp.OutputImageURL)
			assert.Equal(t, "bin", resp.FinalAdvice)
			assert.Empty(t, resp.Message)
		})
	}
}

func TestRun_ClassifierErrorUsesFallback(t *testing.T) {
	f := newFixture(classify.Result{}, errors.New("decode classification JSON: boom"))

	resp, err := f.svc.Run(context.Background(), Input{Filename: "x.jpg", Data: []byte("img")})
	require.NoError(t, err)

	assert.Nil(t, resp.GeminiResult.IsWaste)
	assert.Nil(t, resp.GeminiResult.WasteType)
	assert.Contains(t, resp.GeminiResult.Description, "Parsing error:")
	assert.Equal(t, "N/A", resp.FinalAdvice)
	require.NotNil(t, resp.ModelUsed)
	assert.Equal(t, "YOLOv5 (Waste)", *resp.ModelUsed)
	assert.Equal(t, 1, f.waste.calls)
}

func TestRun_DetectorErrorFails(t *testing.T) {
	f := newFixture(classify.Result{IsWaste: boolPtr(true), WasteType: strPtr("E-waste")}, nil)
	f.ewaste.err = errors.New("inference: bad tensor")

	_, err := f.svc.Run(context.Background(), Input{Filename: "x.jpg", Data: []byte("img")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference: bad tensor")
	assert.Empty(t, f.files.outputs)
}

func TestRun_MissingDetectorFails(t *testing.T) {
	f := newFixture(classify.Result{IsWaste: boolPtr(true), WasteType: strPtr("Mixed Waste")}, nil)
	f.svc.Models = &detect.Registry{Waste: f.waste}

	_, err := f.svc.Run(context.Background(), Input{Data: []byte("img")})
	assert.Error(t, err)
}

func TestRun_EmptyImage(t *testing.T) {
	f := newFixture(classify.Result{}, nil)
	_, err := f.svc.Run(context.Background(), Input{Filename: "x.jpg"})
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.Zero(t, f.cls.calls)
}

func TestRun_RecordsHistory(t *testing.T) {
	f := newFixture(classify.Result{IsWaste: boolPtr(true), WasteType: strPtr("E-waste")}, nil)

	resp, err := f.svc.Run(context.Background(), Input{Filename: "x.jpg", Data: []byte("img"), Source: SourceTelegram})
	require.NoError(t, err)
	require.Len(t, f.hist.rows, 1)

	row := f.hist.rows[0]
	assert.Equal(t, resp.RequestID, row.RequestID)
	assert.Equal(t, SourceTelegram, row.Source)
	assert.Equal(t, "E-waste", row.WasteType)
	assert.Equal(t, "YOLOv8 (E-waste)", row.ModelUsed)
	assert.Equal(t, []string{"phone", "cable"}, row.DetectedObjects)
	assert.Equal(t, "u.jpg", row.UploadName)
	assert.Equal(t, "o.jpg", row.OutputName)
	assert.Len(t, row.ImageHash, 64)
}

func TestRun_NoHistoryIsFine(t *testing.T) {
	f := newFixture(classify.Result{IsWaste: boolPtr(false)}, nil)
	f.svc.History = nil
	_, err := f.svc.Run(context.Background(), Input{Data: []byte("img")})
	assert.NoError(t, err)
}
