package adapters

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"leadflow_backend/internal/enrichment"

	"leadflow_backend/internal/leads/domain"
	"leadflow_backend/internal/verification"
)

type stubChecker struct {
	resp verification.Response
	err  error
}

func (s stubChecker) Check(ctx context.Context, emails []string) (verification.Response, error) {
	return s.resp, s.err
}

func TestScrapFieldsStructured(t *testing.T) {
	info, err := domain.ParseScrapInfo([]byte(`{"title":"Acme Co","desc":"sells widgets","zeta":"z","alpha":2}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	fields := scrapFields(info, "+16502530000")
	if fields[0].Key != "title" || fields[0].Value != "Acme Co" {
		t.Errorf("first field = %+v", fields[0])
	}
	if fields[3].Key != "phone" || fields[3].Value != "+16502530000" {
		t.Errorf("phone field = %+v", fields[3])
	}
	last := fields[len(fields)-2:]
	if last[0].Key != "alpha" || last[0].Value != "2" || last[1].Key != "zeta" || last[1].Value != "z" {
		t.Errorf("extra fields = %+v", last)
	}
}

func TestScrapFieldsOpaque(t *testing.T) {
	info, err := domain.ParseScrapInfo([]byte(`["a","b"]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields := scrapFields(info, "")
	if len(fields) != 1 || fields[0].Key != "raw" || fields[0].Value != `["a","b"]` {
		t.Errorf("fields = %+v", fields)
	}
}

func TestScrapFieldsOpaqueKeepsRunesIntact(t *testing.T) {
	raw := `["` + strings.Repeat("é", 3000) + `"]`
	info, err := domain.ParseScrapInfo([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields := scrapFields(info, "")
	if len(fields) != 1 || fields[0].Value != raw {
		t.Fatalf("opaque payload should reach the prompt builder unchanged")
	}

	prompt := enrichment.BuildPrompt(enrichment.Input{Fields: fields})
	if !utf8.ValidString(prompt) {
		t.Fatal("prompt is not valid UTF-8")
	}
	if !strings.Contains(prompt, strings.Repeat("é", 100)) {
		t.Error("prompt should carry the truncated payload")
	}
}

func TestEmailVerifierAdapterKeepsInvalidInInfo(t *testing.T) {
	svc := verification.New(stubChecker{resp: verification.Response{
		Verdicts: []verification.Verdict{{Status: "disposable"}},
		Raw:      json.RawMessage(`[{"status":"disposable"}]`),
	}}, nil)

	got := NewEmailVerifierAdapter(svc).VerifyEmail(context.Background(), "a@example.com")
	if got.Outcome != domain.OutcomeInvalid {
		t.Fatalf("outcome = %s, want invalid", got.Outcome)
	}
	if got.Outcome.Persisted() != domain.VerifyEmailFailed {
		t.Errorf("invalid should persist as failed")
	}
	if got.Info.Outcome != domain.OutcomeInvalid || string(got.Info.Verdicts) != `[{"status":"disposable"}]` {
		t.Errorf("info = %+v", got.Info)
	}
}
