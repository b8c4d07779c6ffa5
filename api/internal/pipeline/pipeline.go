// Package pipeline прогоняет изображение через классификацию, выбор модели
// и детекцию и собирает ответ клиенту.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"smartseg/api/internal/classify"
	"smartseg/api/internal/detect"
	"smartseg/api/internal/store"
	"smartseg/api/internal/util"
)

const NotWasteMessage = "The object is not waste."

const (
	SourceHTTP     = "http"
	SourceTelegram = "telegram"
)

var ErrEmptyImage = errors.New("empty image")

type Picker interface {
	Pick(label string) (detect.Kind, detect.Detector, error)
}

type Files interface {
	SaveUpload(clientName string, data []byte) (string, error)
	SaveOutput(jpeg []byte) (string, error)
	UploadURL(name string) string
	OutputURL(name string) string
}

type History interface {
	Insert(ctx context.Context, d store.Detection) error
}

type Input struct {
	Filename string
	Data     []byte
	Source   string
}

// Response повторяет JSON, который отдаёт POST /detect.
type Response struct {
	GeminiResult     classify.Result `json:"gemini_result"`
	UploadedImageURL string          `json:"uploaded_image_url"`
	OutputImageURL   *string         `json:"output_image_url"`
	Message          string          `json:"message,omitempty"`
	DetectedObjects  []string        `json:"detected_objects"`
	ModelUsed        *string         `json:"model_used"`
	FinalAdvice      string          `json:"final_advice"`

	RequestID string `json:"-"`
	Annotated []byte `json:"-"`
}

type Service struct {
	Classifier classify.Classifier
	Models     Picker
	Files      Files
	History    History // может быть nil
}

func New(c classify.Classifier, models Picker, files Files, history History) *Service {
	return &Service{Classifier: c, Models: models, Files: files, History: history}
}

func (s *Service) Run(ctx context.Context, in Input) (Response, error) {
	if len(in.Data) == 0 {
		return Response{}, ErrEmptyImage
	}
	reqID := uuid.NewString()

	uploadName, err := s.Files.SaveUpload(in.Filename, in.Data)
	if err != nil {
		return Response{}, err
	}

	res, err := s.Classifier.Classify(ctx, in.Data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Response{}, fmt.Errorf("classify: %w", ctxErr)
		}
		log.Printf("[%s] classify failed, using fallback: %v", reqID, err)
		res = classify.Fallback(err)
	}

	resp := Response{
		GeminiResult:     res,
		UploadedImageURL: s.Files.UploadURL(uploadName),
		DetectedObjects:  []string{},
		FinalAdvice:      res.DisposalAdvice,
		RequestID:        reqID,
	}

	if res.NotWaste() {
		resp.Message = NotWasteMessage
		s.record(ctx, in, reqID, uploadName, "", resp)
		return resp, nil
	}

	label := res.Label()
	kind, det, err := s.Models.Pick(label)
	if err != nil {
		return Response{}, err
	}
	if label == "" {
		log.Printf("[%s] no waste_type in classification, using %s", reqID, kind.ModelUsed())
	}

	out, err := det.Detect(ctx, in.Data)
	if err != nil {
		return Response{}, fmt.Errorf("detect (%s): %w", det.Name(), err)
	}
	outputName, err := s.Files.SaveOutput(out.Annotated)
	if err != nil {
		return Response{}, err
	}

	outURL := s.Files.OutputURL(outputName)
	modelUsed := kind.ModelUsed()
	resp.OutputImageURL = &outURL
	resp.ModelUsed = &modelUsed
	resp.DetectedObjects = out.Labels()
	resp.Annotated = out.Annotated

	log.Printf("[%s] %s: %d objects, label=%q", reqID, modelUsed, len(resp.DetectedObjects), label)
	s.record(ctx, in, reqID, uploadName, outputName, resp)
	return resp, nil
}

// record пишет историю; ошибки только логируются.
func (s *Service) record(ctx context.Context, in Input, reqID, uploadName, outputName string, resp Response) {
	if s.History == nil {
		return
	}
	src := in.Source
	if src == "" {
		src = SourceHTTP
	}
	row := store.Detection{
		RequestID:       reqID,
		Source:          src,
		ImageHash:       util.SHA256Hex(in.Data),
		DetectedObjects: resp.DetectedObjects,
		UploadName:      uploadName,
		OutputName:      outputName,
	}
	if resp.GeminiResult.WasteType != nil {
		row.WasteType = *resp.GeminiResult.WasteType
	}
	if resp.ModelUsed != nil {
		row.ModelUsed = *resp.ModelUsed
	}
	if err := s.History.Insert(ctx, row); err != nil {
		log.Printf("[%s] history insert: %v", reqID, err)
	}
}
