package telegram

import (
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"

	"smartseg/api/internal/classify"
	"smartseg/api/internal/pipeline"
)

func TestFormatCaption_Waste(t *testing.T) {
	yes := true
	wt := "E-waste"
	model := "YOLOv8 (E-waste)"
	got := FormatCaption(pipeline.Response{
		GeminiResult:    classify.Result{IsWaste: &yes, WasteType: &wt, Description: "An old phone."},
		DetectedObjects: []string{"phone", "cable", "phone"},
		ModelUsed:       &model,
		FinalAdvice:     "Take it to an e-waste collection point.",
	})

	assert.Equal(t, "♻️ Waste type: E-waste\n"+
		"Model: YOLOv8 (E-waste)\n"+
		"Detected: phone ×2, cable\n"+
		"\nAn old phone.\n"+
		"\n🗑 Take it to an e-waste collection point.", got)
}

func TestFormatCaption_NotWaste(t *testing.T) {
	no := false
	got := FormatCaption(pipeline.Response{
		GeminiResult:    classify.Result{IsWaste: &no, Description: "A cat."},
		Message:         pipeline.NotWasteMessage,
		DetectedObjects: []string{},
		FinalAdvice:     "",
	})
	assert.Equal(t, "✅ The object is not waste.\n\nA cat.", got)
}

func TestFormatCaption_FallbackHidesNA(t *testing.T) {
	got := FormatCaption(pipeline.Response{
		GeminiResult: classify.Result{Description: "Parsing error: boom", DisposalAdvice: "N/A"},
		FinalAdvice:  "N/A",
	})
	assert.Contains(t, got, "Waste type: unknown")
	assert.Contains(t, got, "Detected: nothing")
	assert.NotContains(t, got, "N/A")
}

func TestFormatCaption_Truncated(t *testing.T) {
	got := FormatCaption(pipeline.Response{
		GeminiResult: classify.Result{Description: strings.Repeat("a", 5000)},
	})
	assert.LessOrEqual(t, len(utf16.Encode([]rune(got))), maxCaption)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestFormatCaption_TruncatedByUTF16Units(t *testing.T) {
	// 700 рун, но 1400 единиц UTF-16
	got := FormatCaption(pipeline.Response{
		GeminiResult: classify.Result{Description: strings.Repeat("🗑", 700)},
	})
	assert.LessOrEqual(t, len(utf16.Encode([]rune(got))), maxCaption)
	assert.True(t, strings.HasSuffix(got, "…"))
}
