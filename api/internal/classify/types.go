package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Result: ответ классификатора. IsWaste и WasteType равны nil, когда модель
// не дала ответа (см. Fallback).
type Result struct {
	IsWaste        *bool   `json:"is_waste"`
	WasteType      *string `json:"waste_type"`
	Description    string  `json:"description"`
	DisposalAdvice string  `json:"disposal_advice"`
}

// Label: нормализованная (lower-case) метка для выбора модели.
func (r Result) Label() string {
	if r.WasteType == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*r.WasteType))
}

// NotWaste истинно только при явном is_waste=false.
func (r Result) NotWaste() bool {
	return r.IsWaste != nil && !*r.IsWaste
}

// Fallback: результат, подставляемый при любой ошибке классификации.
func Fallback(err error) Result {
	return Result{
		Description:    fmt.Sprintf("Parsing error: %v", err),
		DisposalAdvice: "N/A",
	}
}

// UnmarshalJSON принимает is_waste как bool, 0/1, строку ("true"/"yes"/...) или null.
// Нераспознанное значение становится nil, остальные поля сохраняются.
func (r *Result) UnmarshalJSON(b []byte) error {
	var raw struct {
		IsWaste        json.RawMessage `json:"is_waste"`
		WasteType      *string         `json:"waste_type"`
		Description    *string         `json:"description"`
		DisposalAdvice *string         `json:"disposal_advice"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Result{IsWaste: flexBool(raw.IsWaste), WasteType: raw.WasteType}
	if raw.Description != nil {
		r.Description = *raw.Description
	}
	if raw.DisposalAdvice != nil {
		r.DisposalAdvice = *raw.DisposalAdvice
	}
	return nil
}

func flexBool(b json.RawMessage) *bool {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		return &v
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		s = n.String()
	} else {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return nil
		}
		s = str
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		v = true
	case "false", "no", "0":
		v = false
	default:
		return nil
	}
	return &v
}
