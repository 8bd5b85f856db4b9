package render

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata is a document's scheme.json record. Every field is optional.
type Metadata struct {
	Title         Optional `json:"title"`
	Type          Optional `json:"type"`
	Date          Optional `json:"date"`
	Year          Optional `json:"year"`
	DOI           Optional `json:"doi"`
	Interviewer   Optional `json:"interviewer"`
	InterviewDate Optional `json:"interviewdate"`
	Abstract      Optional `json:"abstract"`
	Collection    Optional `json:"collection"`
}

// Optional holds a metadata value as display text. Valid is false when the
// key is absent or its value is empty, zero, false or null.
type Optional struct {
	Value string
	Valid bool
}

func Some(value string) Optional {
	return Optional{Value: value, Valid: value != ""}
}

func (o *Optional) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Value, o.Valid = displayText(raw)
	return nil
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func displayText(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case float64:
		if v == 0 {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		if !v {
			return "", false
		}
		return "true", true
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if text, ok := displayText(item); ok {
				parts = append(parts, text)
			}
		}
		return strings.Join(parts, "; "), len(parts) > 0
	default:
		return "", false
	}
}
