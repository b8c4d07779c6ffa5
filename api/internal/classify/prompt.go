package classify

import (
	"fmt"
	"os"
	"strings"
)

const DefaultPrompt = "Analyze the image and RETURN STRICT JSON ONLY.\n" +
	"NO Markdown. NO ``` blocks. NO text outside JSON.\n" +
	"Format:\n" +
	"{\n" +
	"  \"is_waste\": true/false,\n" +
	"  \"waste_type\": \"E-waste\", \"BioDegradable Waste\", \"Non-Biodegradable Waste\", \"Mixed Waste\", or \"Not Waste\",\n" +
	"  \"description\": \"reason\",\n" +
	"  \"disposal_advice\": \"advice\"\n" +
	"}"

// LoadPrompt читает промпт из файла; пустой путь: встроенный DefaultPrompt.
func LoadPrompt(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", path, err)
	}
	p := strings.TrimSpace(string(b))
	if p == "" {
		return "", fmt.Errorf("prompt %s is empty", path)
	}
	return p, nil
}
