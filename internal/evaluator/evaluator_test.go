package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/anuvad/internal/llm"
)

const incorrectVerdictJSON = `{
	"status": "incorrect",
	"message": "আপনার অনুবাদ সঠিক হয়নি।",
	"errors": [
		{"category": "Tense", "detail": "'go' should be 'went' for a past action."},
		{"category": "article", "detail": ""}
	],
	"why": {
		"incorrect_reason": "গতকালের কাজের জন্য অতীত কাল লাগবে।",
		"correction_explanation": "'go' এর বদলে 'went' লিখুন।"
	},
	"correct_translation": "I went to school yesterday."
}`

const correctVerdictJSON = `{"status":"correct","message":"আপনার অনুবাদ সঠিক!","errors":[],"why":{"incorrect_reason":"","correction_explanation":""},"correct_translation":"I eat rice."}`

func TestGenerateSentence(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(`{"sentence":"  আমি প্রতিদিন সকালে হাঁটতে যাই।  "}`)
	ev := New(mock, DefaultConfig())

	got, err := ev.GenerateSentence(context.Background(), SentenceRequest{
		Level:        35,
		SentenceType: "declarative",
		Topic:        "health",
		Weaknesses:   map[string]int{"tense": 3, "article": 1},
		Avoid:        []string{"আমি ভাত খাই।"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "আমি প্রতিদিন সকালে হাঁটতে যাই।" {
		t.Fatalf("unexpected sentence %q", got)
	}

	req := mock.LastCall()
	if req.Schema != SentenceSchema {
		t.Fatal("expected sentence schema")
	}
	msg := req.Messages[0].Content
	for _, want := range []string{"Level: 35 of 100", "Band: elementary", "Sentence type: declarative", "Topic: health", "tense (3), article (1)", "1. আমি ভাত খাই।"} {
		if !strings.Contains(msg, want) {
			t.Errorf("prompt missing %q:\n%s", want, msg)
		}
	}
}

func TestGenerateSentence_FencedReply(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("```json\n{\"sentence\":\"তুমি কোথায় যাচ্ছ?\"}\n```")
	ev := New(mock, DefaultConfig())

	got, err := ev.GenerateSentence(context.Background(), SentenceRequest{Level: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "তুমি কোথায় যাচ্ছ?" {
		t.Fatalf("unexpected sentence %q", got)
	}
}

func TestGenerateSentence_RejectsNonBengali(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(`{"sentence":"I eat rice."}`)
	ev := New(mock, DefaultConfig())

	_, err := ev.GenerateSentence(context.Background(), SentenceRequest{Level: 10})
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestGenerateSentence_ProviderFailure(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddError(&llm.ErrProviderUnavailable{Err: errors.New("connection refused")})
	ev := New(mock, DefaultConfig())

	_, err := ev.GenerateSentence(context.Background(), SentenceRequest{Level: 10})
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestGrade_Incorrect(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(incorrectVerdictJSON)
	ev := New(mock, DefaultConfig())

	v, err := ev.Grade(context.Background(), GradeRequest{
		Bengali: "আমি গতকাল স্কুলে গিয়েছিলাম।",
		English: "I go to school yesterday.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Correct() {
		t.Fatal("expected incorrect verdict")
	}
	if v.CorrectTranslation != "I went to school yesterday." {
		t.Fatalf("unexpected correction %q", v.CorrectTranslation)
	}
	if v.Why.IncorrectReason == "" {
		t.Fatal("expected an incorrect reason")
	}
	if got := v.ErrorSummary(); got != "tense: 'go' should be 'went' for a past action." {
		t.Fatalf("unexpected summary %q", got)
	}

	pv := v.Progress()
	if pv.Correct || len(pv.Findings) != 2 {
		t.Fatalf("unexpected progress verdict %+v", pv)
	}

	req := mock.LastCall()
	if len(req.Messages) != 5 {
		t.Fatalf("expected 4 few-shot turns plus the pair, got %d", len(req.Messages))
	}
	last := req.Messages[4].Content
	if !strings.Contains(last, "বাংলা বাক্য: আমি গতকাল স্কুলে গিয়েছিলাম।") || !strings.Contains(last, "ইংরেজি অনুবাদ: I go to school yesterday.") {
		t.Fatalf("unexpected grading turn %q", last)
	}
	if req.Messages[1].Role != llm.RoleAssistant {
		t.Fatal("expected few-shot answers as assistant turns")
	}
}

func TestGrade_Correct(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(correctVerdictJSON)
	ev := New(mock, DefaultConfig())

	v, err := ev.Grade(context.Background(), GradeRequest{Bengali: "আমি ভাত খাই।", English: "I eat rice."})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Correct() || !v.Progress().Correct {
		t.Fatalf("expected correct verdict, got %+v", v)
	}
	if v.Message != "আপনার অনুবাদ সঠিক!" {
		t.Fatalf("unexpected message %q", v.Message)
	}
}

func TestGrade_MalformedReply(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText(`Looks good to me!`)
	ev := New(mock, DefaultConfig())

	_, err := ev.Grade(context.Background(), GradeRequest{Bengali: "আমি ভাত খাই।", English: "I eat rice."})
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
	if string(inv.Content) != "Looks good to me!" {
		t.Fatalf("expected raw reply preserved, got %q", inv.Content)
	}
}

func TestGradeAndCheck_TagPurpose(t *testing.T) {
	var purposes []string
	p := purposeSpy{inner: llm.NewMockProvider(
		llm.MockResponse{Content: []byte(correctVerdictJSON)},
		llm.MockResponse{Content: []byte(correctVerdictJSON)},
	), seen: &purposes}
	ev := New(p, DefaultConfig())

	if _, err := ev.Grade(context.Background(), GradeRequest{Bengali: "ক", English: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ev.Check(context.Background(), GradeRequest{Bengali: "ক", English: "a"}); err != nil {
		t.Fatal(err)
	}
	if strings.Join(purposes, ",") != "grade,check" {
		t.Fatalf("unexpected purposes %v", purposes)
	}
}

func TestChat(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("  'Since' দিয়ে সময়ের শুরু বোঝায়: I have lived here since 2010.  ")
	cfg := DefaultConfig()
	cfg.MaxHistoryTurns = 2
	ev := New(mock, cfg)

	got, err := ev.Chat(context.Background(), ChatRequest{
		Question: "since আর for এর পার্থক্য কী?",
		History: []ChatTurn{
			{Text: "old question"},
			{FromModel: true, Text: "old answer"},
			{Text: "newer question"},
			{FromModel: true, Text: "newer answer"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "'Since'") {
		t.Fatalf("expected trimmed reply, got %q", got)
	}

	req := mock.LastCall()
	if req.Schema != nil {
		t.Fatal("chat must not request structured output")
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected 2 history turns plus question, got %d", len(req.Messages))
	}
	if req.Messages[0].Content != "newer question" || req.Messages[1].Role != llm.RoleAssistant {
		t.Fatalf("unexpected history replay %+v", req.Messages)
	}
}

func TestChat_EmptyReply(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.AddText("   ")
	ev := New(mock, DefaultConfig())

	_, err := ev.Chat(context.Background(), ChatRequest{Question: "hello"})
	var inv *llm.ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

type purposeSpy struct {
	inner llm.Provider
	seen  *[]string
}

func (p purposeSpy) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	*p.seen = append(*p.seen, llm.PurposeFrom(ctx))
	return p.inner.Generate(ctx, req)
}

func (p purposeSpy) ModelID() string { return p.inner.ModelID() }
