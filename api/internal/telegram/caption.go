package telegram

import (
	"fmt"
	"strings"

	"smartseg/api/internal/pipeline"
	"smartseg/api/internal/util"
)

// лимит подписи к фото в Bot API, в единицах UTF-16
const maxCaption = 1024

// FormatCaption собирает подпись к ответу бота.
func FormatCaption(resp pipeline.Response) string {
	var b strings.Builder
	res := resp.GeminiResult

	if resp.Message != "" {
		b.WriteString("✅ " + resp.Message + "\n")
	} else {
		kind := "unknown"
		if res.WasteType != nil && strings.TrimSpace(*res.WasteType) != "" {
			kind = strings.TrimSpace(*res.WasteType)
		}
		b.WriteString("♻️ Waste type: " + kind + "\n")
		if resp.ModelUsed != nil {
			b.WriteString("Model: " + *resp.ModelUsed + "\n")
		}
		b.WriteString("Detected: " + summarizeObjects(resp.DetectedObjects) + "\n")
	}

	if d := strings.TrimSpace(res.Description); d != "" {
		b.WriteString("\n" + d + "\n")
	}
	if a := strings.TrimSpace(resp.FinalAdvice); a != "" && a != "N/A" {
		b.WriteString("\n🗑 " + a)
	}
	return util.TruncateUTF16(strings.TrimSpace(b.String()), maxCaption)
}

// summarizeObjects: "bottle ×2, can" в порядке первого появления.
func summarizeObjects(objs []string) string {
	if len(objs) == 0 {
		return "nothing"
	}
	counts := map[string]int{}
	var order []string
	for _, o := range objs {
		if counts[o] == 0 {
			order = append(order, o)
		}
		counts[o]++
	}
	parts := make([]string, 0, len(order))
	for _, o := range order {
		if n := counts[o]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s ×%d", o, n))
		} else {
			parts = append(parts, o)
		}
	}
	return strings.Join(parts, ", ")
}
