package llm

import (
	"errors"
	"testing"
)

func TestDecodeModelJSON(t *testing.T) {
	type payload struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}

	var p payload
	if err := decodeModelJSON(`{"emotion":"joy","confidence":0.9}`, &p); err != nil {
		t.Fatalf("clean JSON: %v", err)
	}
	if p.Emotion != "joy" || p.Confidence != 0.9 {
		t.Errorf("decoded = %+v", p)
	}

	// Prose around the object is tolerated.
	p = payload{}
	raw := "Here is the result: {\"emotion\":\"sadness\",\"confidence\":0.4} hope that helps"
	if err := decodeModelJSON(raw, &p); err != nil {
		t.Fatalf("wrapped JSON: %v", err)
	}
	if p.Emotion != "sadness" {
		t.Errorf("decoded = %+v", p)
	}

	if err := decodeModelJSON("", &p); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("empty input: err = %v", err)
	}
	if err := decodeModelJSON("no json here", &p); err == nil {
		t.Error("garbage input accepted")
	}
}

func TestGenerateSchemaIsStrict(t *testing.T) {
	type sample struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}
	schema := GenerateSchema[sample]()

	if schema["additionalProperties"] != false {
		t.Error("additionalProperties not false")
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties = %T", schema["properties"])
	}
	if _, ok := props["emotion"]; !ok {
		t.Error("emotion property missing")
	}

	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("required = %T", schema["required"])
	}
	if len(required) != 2 {
		t.Errorf("required = %v, want both fields", required)
	}
}

func TestIsRetryable(t *testing.T) {
	if isRetryable(nil) {
		t.Error("nil error retryable")
	}
	if !isRetryable(errors.New("500 Internal Server Error")) {
		t.Error("500 not retryable")
	}
	if isRetryable(errors.New("401 Unauthorized")) {
		t.Error("401 retryable")
	}
}
