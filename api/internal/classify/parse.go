package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"smartseg/api/internal/util"
)

var (
	ErrEmptyResponse = errors.New("empty response from classification service")
	ErrNoJSON        = errors.New("no JSON found in classification response")
	ErrNoKnownFields = errors.New("classification JSON has none of the expected fields")
)

var knownKeys = []string{"is_waste", "waste_type", "description", "disposal_advice"}

// Parse разбирает текст ответа модели в Result.
// Порядок: весь текст без ``` -> первый {...} блок -> тот же блок с ' -> ".
func Parse(raw string) (Result, error) {
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return Result{}, ErrEmptyResponse
	}
	if r, err := decodeStrict(txt); err == nil {
		return r, nil
	}

	obj, ok := util.FirstJSONObject(txt)
	if !ok {
		return Result{}, ErrNoJSON
	}
	r, err := decodeStrict(obj)
	if err == nil {
		return r, nil
	}
	if strings.Contains(obj, "'") {
		if r, err2 := decodeStrict(strings.ReplaceAll(obj, "'", `"`)); err2 == nil {
			return r, nil
		}
	}
	return Result{}, fmt.Errorf("decode classification JSON: %w", err)
}

func decodeStrict(s string) (Result, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return Result{}, err
	}
	found := false
	for _, k := range knownKeys {
		if _, ok := keys[k]; ok {
			found = true
			break
		}
	}
	if !found {
		return Result{}, ErrNoKnownFields
	}
	var r Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return Result{}, err
	}
	return r, nil
}
