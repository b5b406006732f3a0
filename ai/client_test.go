package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeGenerator struct {
	calls   int
	models  []string
	configs []*genai.GenerateContentConfig
	parts   [][]*genai.Part
	resp    *genai.GenerateContentResponse
	err     error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	if len(contents) > 0 {
		f.parts = append(f.parts, contents[0].Parts)
	}
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
	}}}
}

func newTestClient(t *testing.T, gen *fakeGenerator) *Client {
	t.Helper()
	c, err := NewClientWithGenerator(gen, Config{APIKey: "test"})
	if err != nil {
		t.Fatalf("NewClientWithGenerator error: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestHeadlineVariationsParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("Here you go:\n```json\n[{\"text\":\"  VOCÊ NÃO VAI ACREDITAR \",\"keywords\":[\"ACREDITAR\"]},{\"text\":\"\"}]\n```")}
	c := newTestClient(t, gen)

	list, err := c.GenerateHeadlineVariations(context.Background(), "voce nao vai acreditar")
	if err != nil {
		t.Fatalf("GenerateHeadlineVariations error: %v", err)
	}
	if len(list) != 1 || list[0].Text != "VOCÊ NÃO VAI ACREDITAR" || list[0].Keywords[0] != "ACREDITAR" {
		t.Fatalf("unexpected variations %+v", list)
	}
	if gen.models[0] != DefaultTextModel {
		t.Fatalf("expected text model, got %s", gen.models[0])
	}
	if gen.configs[0].ResponseSchema == nil || gen.configs[0].ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON schema request")
	}

	// 第二次命中缓存，且修改返回值不影响缓存
	list[0].Keywords[0] = "CHANGED"
	again, err := c.GenerateHeadlineVariations(context.Background(), "voce nao vai acreditar")
	if err != nil {
		t.Fatalf("cached call error: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected cached result, got %d calls", gen.calls)
	}
	if again[0].Keywords[0] != "ACREDITAR" {
		t.Fatalf("cache was mutated: %+v", again)
	}
}

func TestHeadlineVariationsFormatErrorCarriesRaw(t *testing.T) {
	raw := "1. PRIMEIRA OPÇÃO\n\n- SEGUNDA OPÇÃO\n10 DICAS RÁPIDAS"
	gen := &fakeGenerator{resp: textResponse(raw)}
	c := newTestClient(t, gen)

	_, err := c.GenerateHeadlineVariations(context.Background(), "x")
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
	fallback := FallbackVariations(fe.Raw)
	want := []string{"PRIMEIRA OPÇÃO", "SEGUNDA OPÇÃO", "10 DICAS RÁPIDAS"}
	if len(fallback) != len(want) {
		t.Fatalf("expected %d fallback variations, got %+v", len(want), fallback)
	}
	for i, w := range want {
		if fallback[i].Text != w || len(fallback[i].Keywords) != 0 {
			t.Fatalf("fallback[%d] = %+v, want %q", i, fallback[i], w)
		}
	}
}

func TestThumbnailPrompt(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse(`{"englishPrompt":"A shocked man","portugueseTranslation":"Um homem chocado"}`)}
	c := newTestClient(t, gen)

	p, err := c.GenerateThumbnailPrompt(context.Background(), "headline", "neon", []Image{{Data: []byte("\x89PNG\r\n\x1a\n")}})
	if err != nil {
		t.Fatalf("GenerateThumbnailPrompt error: %v", err)
	}
	if p.EnglishPrompt != "A shocked man" || p.PortugueseTranslation != "Um homem chocado" {
		t.Fatalf("unexpected prompt %+v", p)
	}
	parts := gen.parts[0]
	if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
		t.Fatalf("expected image part followed by text, got %+v", parts)
	}
	if !strings.Contains(parts[1].Text, "neon") || !strings.Contains(parts[1].Text, "Reference images attached: 1") {
		t.Fatalf("prompt template not applied: %q", parts[1].Text)
	}
}

func TestThumbnailPromptFormatError(t *testing.T) {
	c := newTestClient(t, &fakeGenerator{resp: textResponse("sorry, I cannot")})
	_, err := c.GenerateThumbnailPrompt(context.Background(), "headline", "", nil)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}

func TestFinalImageOutcomes(t *testing.T) {
	image := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking", Thought: true},
			{InlineData: &genai.Blob{Data: []byte{1, 2, 3}, MIMEType: "image/png"}},
		}},
	}}}
	gen := &fakeGenerator{resp: image}
	c := newTestClient(t, gen)
	data, err := c.GenerateFinalImage(context.Background(), "a prompt", nil, "")
	if err != nil || len(data) != 3 {
		t.Fatalf("expected image bytes, got %v %v", data, err)
	}
	if gen.models[0] != DefaultImageModel || gen.configs[0].ImageConfig.AspectRatio != DefaultAspectRatio {
		t.Fatalf("unexpected image request %s %+v", gen.models[0], gen.configs[0].ImageConfig)
	}

	gen.resp = textResponse("I can't edit this photo.")
	_, err = c.GenerateFinalImage(context.Background(), "a prompt", []Image{{Data: []byte{1}, MIMEType: "image/jpeg"}}, "1:1")
	var refusal *ModelRefusalError
	if !errors.As(err, &refusal) || refusal.Explanation != "I can't edit this photo." {
		t.Fatalf("expected ModelRefusalError, got %v", err)
	}

	gen.resp = &genai.GenerateContentResponse{}
	_, err = c.GenerateFinalImage(context.Background(), "a prompt", nil, "")
	var none *NoOutputError
	if !errors.As(err, &none) {
		t.Fatalf("expected NoOutputError, got %v", err)
	}
}

func TestClassifyAPIErrors(t *testing.T) {
	cases := []struct {
		err   error
		auth  bool
		quota bool
	}{
		{err: genai.APIError{Code: 401, Message: "unauthenticated"}, auth: true},
		{err: genai.APIError{Code: 400, Message: "API key not valid. Please pass a valid API key."}, auth: true},
		{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"}, quota: true},
		{err: genai.APIError{Code: 500, Message: "internal"}},
		{err: errors.New("network down")},
	}
	for i, tc := range cases {
		c := newTestClient(t, &fakeGenerator{err: tc.err})
		_, err := c.GenerateThumbnailPrompt(context.Background(), "h", "", nil)
		var authErr *AuthError
		var quotaErr *QuotaError
		if errors.As(err, &authErr) != tc.auth || errors.As(err, &quotaErr) != tc.quota {
			t.Fatalf("case %d: unexpected classification %v", i, err)
		}
		if !strings.Contains(err.Error(), tc.err.Error()) {
			t.Fatalf("case %d: original error lost: %v", i, err)
		}
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: `[1,2]`, want: `[1,2]`},
		{in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{in: "Sure! {\"a\":{\"b\":2}} hope", want: `{"a":{"b":2}}`},
		{in: "no json here", want: "no json here"},
	}
	for _, tc := range cases {
		if got := extractJSON(tc.in); got != tc.want {
			t.Fatalf("extractJSON(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
