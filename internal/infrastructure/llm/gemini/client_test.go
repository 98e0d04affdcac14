package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/mediscan/internal/core/domain"
)

func candidateResponse(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func modelServer(t *testing.T, respond func(r *http.Request, body map[string]any) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(respond(r, body)))
	}))
}

func firstPromptText(t *testing.T, body map[string]any) string {
	t.Helper()
	contents, _ := body["contents"].([]any)
	if len(contents) == 0 {
		t.Fatal("request has no contents")
	}
	parts, _ := contents[0].(map[string]any)["parts"].([]any)
	if len(parts) == 0 {
		t.Fatal("request has no parts")
	}
	text, _ := parts[0].(map[string]any)["text"].(string)
	return text
}

func TestExtractorParsesJSONSurroundedByProse(t *testing.T) {
	server := modelServer(t, func(_ *http.Request, body map[string]any) string {
		if !strings.Contains(firstPromptText(t, body), "medicineName") {
			t.Fatal("extraction prompt missing schema")
		}
		return candidateResponse("Here you go:\n```json\n{\"medicineName\":\"Ibuprofen\",\"strength\":\"200mg\",\"confidence\":\"92\"}\n```")
	})
	defer server.Close()

	ext := NewExtractor(New(server.URL, "key", "gemini-2.0-flash-exp", nil), GenerationOptions{Temperature: 0.1})
	attrs, err := ext.Extract(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if attrs.MedicineName != "Ibuprofen" || attrs.Strength != "200mg" {
		t.Fatalf("unexpected attributes: %+v", attrs)
	}
	if attrs.Confidence != 92 {
		t.Fatalf("expected string confidence coerced to 92, got %d", attrs.Confidence)
	}
}

func TestExtractorSendsInlineImage(t *testing.T) {
	var gotInline map[string]any
	server := modelServer(t, func(_ *http.Request, body map[string]any) string {
		contents, _ := body["contents"].([]any)
		parts, _ := contents[0].(map[string]any)["parts"].([]any)
		if len(parts) == 2 {
			gotInline, _ = parts[1].(map[string]any)["inline_data"].(map[string]any)
		}
		return candidateResponse(`{"medicineName":"Aspirin"}`)
	})
	defer server.Close()

	ext := NewExtractor(New(server.URL, "key", "gemini-2.0-flash-exp", nil), GenerationOptions{})
	if _, err := ext.Extract(context.Background(), []byte("img"), "image/png"); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if gotInline == nil {
		t.Fatal("expected inline_data part")
	}
	if gotInline["mime_type"] != "image/png" {
		t.Fatalf("unexpected mime type: %v", gotInline["mime_type"])
	}
	if gotInline["data"] != "aW1n" {
		t.Fatalf("expected base64 image payload, got %v", gotInline["data"])
	}
}

func TestExtractorFailsWithoutJSON(t *testing.T) {
	server := modelServer(t, func(*http.Request, map[string]any) string {
		return candidateResponse("I cannot identify any medicine in this picture.")
	})
	defer server.Close()

	ext := NewExtractor(New(server.URL, "key", "m", nil), GenerationOptions{})
	_, err := ext.Extract(context.Background(), []byte("img"), "image/jpeg")
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtractorFailsWithoutMedicineName(t *testing.T) {
	server := modelServer(t, func(*http.Request, map[string]any) string {
		return candidateResponse(`{"form":"tablet","color":"white"}`)
	})
	defer server.Close()

	ext := NewExtractor(New(server.URL, "key", "m", nil), GenerationOptions{})
	_, err := ext.Extract(context.Background(), []byte("img"), "image/jpeg")
	if !domain.IsKind(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestSynthesizerEmbedsAttributesAndLabelMarker(t *testing.T) {
	var prompt string
	server := modelServer(t, func(_ *http.Request, body map[string]any) string {
		prompt = firstPromptText(t, body)
		return candidateResponse(`{"name":"Ibuprofen","description":"Pain reliever.","uses":["Pain"],"warnings":["Do not exceed dose"]}`)
	})
	defer server.Close()

	syn := NewSynthesizer(New(server.URL, "key", "m", nil), GenerationOptions{Temperature: 0.2})
	attrs := domain.ExtractedAttributes{MedicineName: "Ibuprofen", ActiveIngredient: "Ibuprofen"}
	summary, err := syn.Synthesize(context.Background(), attrs, nil)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if summary.Name != "Ibuprofen" || summary.Description != "Pain reliever." {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(prompt, `"medicineName":"Ibuprofen"`) {
		t.Fatalf("prompt missing serialized attributes: %s", prompt)
	}
	if !strings.Contains(prompt, "No FDA data available") {
		t.Fatal("prompt missing no-label marker")
	}
}

func TestSynthesizerForwardsLabelDocument(t *testing.T) {
	var prompt string
	server := modelServer(t, func(_ *http.Request, body map[string]any) string {
		prompt = firstPromptText(t, body)
		return candidateResponse(`{"name":"Advil","description":"NSAID."}`)
	})
	defer server.Close()

	syn := NewSynthesizer(New(server.URL, "key", "m", nil), GenerationOptions{})
	label := domain.LabelRecord(`{"openfda":{"brand_name":["Advil"]}}`)
	if _, err := syn.Synthesize(context.Background(), domain.ExtractedAttributes{MedicineName: "Advil"}, label); err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !strings.Contains(prompt, `"brand_name":["Advil"]`) {
		t.Fatalf("prompt missing label document: %s", prompt)
	}
	if strings.Contains(prompt, "No FDA data available") {
		t.Fatal("prompt should not carry no-label marker when label present")
	}
}

func TestSynthesizerRejectsGarbageOutput(t *testing.T) {
	server := modelServer(t, func(*http.Request, map[string]any) string {
		return candidateResponse("sorry, something went wrong upstream")
	})
	defer server.Close()

	syn := NewSynthesizer(New(server.URL, "key", "m", nil), GenerationOptions{})
	if _, err := syn.Synthesize(context.Background(), domain.ExtractedAttributes{MedicineName: "X"}, nil); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestClientIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	ext := NewExtractor(New(server.URL, "key", "m", nil), GenerationOptions{})
	_, err := ext.Extract(context.Background(), []byte("img"), "image/jpeg")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
