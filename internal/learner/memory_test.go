package learner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abhisek/anuvad/internal/clock"
	"github.com/abhisek/anuvad/internal/progress"
)

const (
	memTestLearner    = "u1"
	memTestGoroutines = 20
	memTestIterations = 50
)

var memTestStart = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestStore() (*MemoryStore, *clock.Fake) {
	clk := clock.NewFake(memTestStart)
	return NewMemoryStore(clk, progress.DefaultPolicy()), clk
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.LearnerID != memTestLearner {
		t.Errorf("LearnerID = %q, want %q", sess.LearnerID, memTestLearner)
	}
	if sess.Progress != 0 {
		t.Errorf("Progress = %d, want 0", sess.Progress)
	}
	if len(sess.Weaknesses) != 0 || len(sess.UsedSentences) != 0 || len(sess.Issued) != 0 {
		t.Errorf("new session not empty: %+v", sess)
	}
	if !sess.LastActiveAt.Equal(memTestStart) {
		t.Errorf("LastActiveAt = %v, want %v", sess.LastActiveAt, memTestStart)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}

	if _, err := store.GetOrCreate(ctx, memTestLearner); err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len after second call = %d, want 1", store.Len())
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	if _, err := store.MarkSentenceUsed(ctx, memTestLearner, "A"); err != nil {
		t.Fatalf("MarkSentenceUsed: %v", err)
	}
	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	sess.Progress = 99
	sess.Weaknesses["tense"] = 10
	sess.Issued[0] = "changed"

	again, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if again.Progress != 0 {
		t.Errorf("Progress = %d, want 0", again.Progress)
	}
	if len(again.Weaknesses) != 0 {
		t.Errorf("Weaknesses = %v, want empty", again.Weaknesses)
	}
	if got := again.Sentences(); !slices.Equal(got, []string{"A"}) {
		t.Errorf("Sentences = %v, want [A]", got)
	}
}

func TestMemoryStore_Touch(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, memTestLearner); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	clk.Advance(time.Hour)
	if err := store.Touch(ctx, memTestLearner); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if want := memTestStart.Add(time.Hour); !sess.LastActiveAt.Equal(want) {
		t.Errorf("LastActiveAt = %v, want %v", sess.LastActiveAt, want)
	}

	if err := store.Touch(ctx, "nobody"); err != nil {
		t.Fatalf("Touch unknown: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1 (touch must not create)", store.Len())
	}
}

func TestMemoryStore_RecordAttempt(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	rep, err := store.RecordAttempt(ctx, memTestLearner, Attempt{Sentence: "আমি ভাত খাই।", Translation: "I eat rice.", Correct: true})
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if rep.Progress != 2 {
		t.Errorf("Progress = %d, want 2", rep.Progress)
	}
	if len(rep.Attempts) != 1 {
		t.Fatalf("Attempts length = %d, want 1", len(rep.Attempts))
	}
	if !rep.Attempts[0].GradedAt.Equal(memTestStart) {
		t.Errorf("GradedAt = %v, want %v", rep.Attempts[0].GradedAt, memTestStart)
	}

	rep, err = store.RecordAttempt(ctx, memTestLearner, Attempt{
		Sentence:    "সে স্কুলে যায়।",
		Translation: "He go school.",
		Findings: []progress.Finding{
			{Category: "grammar", Detail: "go should be goes"},
			{Category: "article", Detail: "missing 'to'"},
		},
	})
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if rep.Progress != 1 {
		t.Errorf("Progress = %d, want 1", rep.Progress)
	}
	if rep.Weaknesses["grammar"] != 1 || rep.Weaknesses["article"] != 1 {
		t.Errorf("Weaknesses = %v, want grammar=1 article=1", rep.Weaknesses)
	}
	if len(rep.Attempts) != 2 {
		t.Errorf("Attempts length = %d, want 2", len(rep.Attempts))
	}
}

func TestMemoryStore_RecordAttemptConcurrent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		failures atomic.Int32
	)
	for g := 0; g < memTestGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.RecordAttempt(ctx, memTestLearner, Attempt{
				Findings: []progress.Finding{{Category: "tense", Detail: "x"}},
			})
			if err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := failures.Load(); n != 0 {
		t.Fatalf("%d RecordAttempt calls failed", n)
	}

	rep, err := store.Snapshot(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if rep.Weaknesses["tense"] != memTestGoroutines {
		t.Errorf("tense = %d, want %d", rep.Weaknesses["tense"], memTestGoroutines)
	}
	if len(rep.Attempts) != memTestGoroutines {
		t.Errorf("Attempts length = %d, want %d", len(rep.Attempts), memTestGoroutines)
	}
}

func TestMemoryStore_MarkSentenceUsed(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	used, err := store.HasSentenceBeenUsed(ctx, memTestLearner, "A")
	if err != nil || used {
		t.Fatalf("HasSentenceBeenUsed before mark = %v, %v; want false, nil", used, err)
	}

	ok, err := store.MarkSentenceUsed(ctx, memTestLearner, "A")
	if err != nil || !ok {
		t.Fatalf("first MarkSentenceUsed = %v, %v; want true, nil", ok, err)
	}

	ok, err = store.MarkSentenceUsed(ctx, memTestLearner, "A")
	if err != nil || ok {
		t.Fatalf("second MarkSentenceUsed = %v, %v; want false, nil (duplicate)", ok, err)
	}

	used, err = store.HasSentenceBeenUsed(ctx, memTestLearner, "A")
	if err != nil || !used {
		t.Errorf("HasSentenceBeenUsed after mark = %v, %v; want true, nil", used, err)
	}

	used, err = store.HasSentenceBeenUsed(ctx, "u2", "A")
	if err != nil || used {
		t.Errorf("other learner HasSentenceBeenUsed = %v, %v; want false, nil", used, err)
	}

	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !slices.Equal(sess.Issued, []string{"A"}) {
		t.Errorf("Issued = %v, want [A] (duplicate must not append)", sess.Issued)
	}
}

func TestMemoryStore_MarkSentenceUsedConcurrent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
		errs atomic.Int32
	)
	for g := 0; g < memTestGoroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkSentenceUsed(ctx, memTestLearner, "same")
			if err != nil {
				errs.Add(1)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := errs.Load(); n != 0 {
		t.Fatalf("%d MarkSentenceUsed calls failed", n)
	}
	if n := wins.Load(); n != 1 {
		t.Errorf("wins = %d, want 1", n)
	}
}

func TestMemoryStore_ForgetSentence(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	for _, s := range []string{"A", "B", "C"} {
		if _, err := store.MarkSentenceUsed(ctx, memTestLearner, s); err != nil {
			t.Fatalf("MarkSentenceUsed(%q): %v", s, err)
		}
	}

	if err := store.ForgetSentence(ctx, memTestLearner, "B"); err != nil {
		t.Fatalf("ForgetSentence: %v", err)
	}
	used, err := store.HasSentenceBeenUsed(ctx, memTestLearner, "B")
	if err != nil || used {
		t.Errorf("HasSentenceBeenUsed(B) = %v, %v; want false, nil", used, err)
	}
	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got := sess.Sentences(); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("Sentences = %v, want [A C]", got)
	}

	// A forgotten sentence can be issued again and goes to the end.
	ok, err := store.MarkSentenceUsed(ctx, memTestLearner, "B")
	if err != nil || !ok {
		t.Fatalf("re-mark B = %v, %v; want true, nil", ok, err)
	}
	sess, _ = store.GetOrCreate(ctx, memTestLearner)
	if got := sess.Sentences(); !slices.Equal(got, []string{"A", "C", "B"}) {
		t.Errorf("Sentences = %v, want [A C B]", got)
	}

	if err := store.ForgetSentence(ctx, memTestLearner, "never issued"); err != nil {
		t.Errorf("ForgetSentence unknown sentence: %v", err)
	}
	if err := store.ForgetSentence(ctx, "nobody", "A"); err != nil {
		t.Errorf("ForgetSentence unknown learner: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1 (forget must not create)", store.Len())
	}
}

func TestMemoryStore_TypeUsageAndHistory(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.RecordSentenceType(ctx, memTestLearner, "negative"); err != nil {
			t.Fatalf("RecordSentenceType: %v", err)
		}
	}

	clk.Advance(time.Minute)
	err := store.AppendHistory(ctx, memTestLearner,
		Turn{Role: RoleUser, Text: "How do I say hello?"},
		Turn{Role: RoleModel, Text: "Hello = নমস্কার"},
	)
	if err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sess.TypeUsage["negative"] != 2 {
		t.Errorf("TypeUsage[negative] = %d, want 2", sess.TypeUsage["negative"])
	}
	if len(sess.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(sess.History))
	}
	if sess.History[1].Role != RoleModel {
		t.Errorf("History[1].Role = %q, want %q", sess.History[1].Role, RoleModel)
	}
	want := memTestStart.Add(time.Minute)
	if !sess.History[0].At.Equal(want) {
		t.Errorf("History[0].At = %v, want %v", sess.History[0].At, want)
	}
	if !sess.LastActiveAt.Equal(want) {
		t.Errorf("LastActiveAt = %v, want %v", sess.LastActiveAt, want)
	}
}

func TestMemoryStore_SnapshotNotFound(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Snapshot(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Snapshot err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_EvictOlderThan(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	if _, err := store.GetOrCreate(ctx, "stale"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	clk.Advance(6 * time.Hour)
	if _, err := store.GetOrCreate(ctx, "fresh"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	clk.Advance(time.Hour)
	n, err := store.EvictOlderThan(ctx, clk.Now().Add(-6*time.Hour))
	if err != nil {
		t.Fatalf("EvictOlderThan: %v", err)
	}
	if n != 1 {
		t.Errorf("evicted = %d, want 1", n)
	}

	if _, err := store.Snapshot(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stale Snapshot err = %v, want ErrNotFound", err)
	}
	if _, err := store.Snapshot(ctx, "fresh"); err != nil {
		t.Errorf("fresh Snapshot: %v", err)
	}
}

func TestMemoryStore_EvictRacesWithTouch(t *testing.T) {
	store, clk := newTestStore()
	ctx := context.Background()

	for i := 0; i < memTestIterations; i++ {
		if _, err := store.GetOrCreate(ctx, fmt.Sprintf("l-%d", i)); err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
	}
	clk.Advance(7 * time.Hour)

	var (
		wg   sync.WaitGroup
		errs atomic.Int32
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < memTestIterations; i++ {
			if err := store.Touch(ctx, fmt.Sprintf("l-%d", i)); err != nil {
				errs.Add(1)
			}
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := store.EvictOlderThan(ctx, clk.Now().Add(-6*time.Hour)); err != nil {
			errs.Add(1)
		}
	}()
	wg.Wait()
	if n := errs.Load(); n != 0 {
		t.Fatalf("%d store calls failed", n)
	}

	// Touch never resurrects an evicted session.
	if store.Len() > memTestIterations {
		t.Errorf("Len = %d, want <= %d", store.Len(), memTestIterations)
	}
	for i := 0; i < memTestIterations; i++ {
		rep, err := store.Snapshot(ctx, fmt.Sprintf("l-%d", i))
		if err == nil && !rep.LastActive.Equal(clk.Now()) {
			t.Errorf("l-%d survived eviction untouched: LastActive = %v", i, rep.LastActive)
		}
	}
}

func TestSession_SentencesAndRecentAttempts(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	for _, s := range []string{"b", "a", "c"} {
		if _, err := store.MarkSentenceUsed(ctx, memTestLearner, s); err != nil {
			t.Fatalf("MarkSentenceUsed(%q): %v", s, err)
		}
	}
	sess, err := store.GetOrCreate(ctx, memTestLearner)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	for i := 0; i < 7; i++ {
		sess.Attempts = append(sess.Attempts, Attempt{Sentence: fmt.Sprint(i)})
	}

	if got := sess.Sentences(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Errorf("Sentences = %v, want issue order [b a c]", got)
	}

	recent := sess.RecentAttempts(3)
	if len(recent) != 3 {
		t.Fatalf("RecentAttempts(3) length = %d, want 3", len(recent))
	}
	if recent[0].Sentence != "4" {
		t.Errorf("RecentAttempts(3)[0] = %q, want %q", recent[0].Sentence, "4")
	}
	if n := len(sess.RecentAttempts(0)); n != 7 {
		t.Errorf("RecentAttempts(0) length = %d, want 7", n)
	}
}

func TestSession_CloneCopiesIssued(t *testing.T) {
	sess := newSession(memTestLearner, memTestStart)
	sess.UsedSentences["x"] = struct{}{}
	sess.Issued = append(sess.Issued, "x")

	c := sess.Clone()
	c.Issued[0] = "y"
	c.Issued = append(c.Issued, "z")

	if !slices.Equal(sess.Issued, []string{"x"}) {
		t.Errorf("original Issued = %v, want [x]", sess.Issued)
	}
}
