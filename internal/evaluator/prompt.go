package evaluator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/anuvad/internal/llm"
	"github.com/abhisek/anuvad/internal/progress"
)

const sentenceSystemPrompt = `You write Bengali practice sentences for native Bengali speakers learning English.

Rules:
- Write exactly one natural Bengali sentence in Bengali script.
- Match the requested sentence type and topic.
- Match the requested difficulty band in length, tense and vocabulary.
- Prefer constructions that exercise the learner's weak areas, if any are listed.
- Never repeat or trivially rephrase a sentence from the "already given" list.
- Do not include an English translation, transliteration, quotes or numbering.`

const chatSystemPrompt = `You are a friendly English tutor for Bengali speakers.

Rules:
- Answer questions about English grammar, vocabulary, usage and translation.
- Explain in simple Bengali, and give English examples.
- Keep answers short: a few sentences and at most three examples.
- If the question is unrelated to learning English, gently steer back to English practice.`

const gradeSystemPrompt = `You check English translations of Bengali sentences written by Bengali learners.

Reply with a single JSON object only. Report every mistake as an entry in
"errors" with a category from this list: ` + "spelling, grammar, tense, syntax, vocabulary, word_order, article, preposition, punctuation" + `.
Write "message" and the "why" explanations in Bengali. Minor punctuation or
capitalisation slips alone do not make a translation incorrect.`

// gradeInstruction closes every grading turn.
const gradeInstruction = "এই অনুবাদটি পরীক্ষা করে JSON ফরম্যাটে উত্তর দিন। কোনো অতিরিক্ত ব্যাখ্যা বা চিহ্ন ব্যবহার করবেন না।"

// gradeFewShot is one accepted and one rejected example, replayed before
// every real grading turn.
var gradeFewShot = []llm.Message{
	{Role: llm.RoleUser, Content: gradeTurn("তিনি কোথায় যান?", "Where does he go?")},
	{Role: llm.RoleAssistant, Content: `{"status":"correct","message":"আপনার অনুবাদ সঠিক!","errors":[],"why":{"incorrect_reason":"","correction_explanation":""},"correct_translation":"Where does he go?"}`},
	{Role: llm.RoleUser, Content: gradeTurn("তিনি কোথায় যান?", "Whera duio he go?")},
	{Role: llm.RoleAssistant, Content: `{"status":"incorrect","message":"আপনার অনুবাদ সঠিক হয়নি।",` +
		`"errors":[{"category":"spelling","detail":"Wrong spelling of 'Where' and 'do'."},{"category":"grammar","detail":"Incorrect subject-verb agreement."}],` +
		`"why":{"incorrect_reason":"'Whera' এবং 'duio' শব্দ দুটি ভুল বানানে লেখা হয়েছে, এবং 'do' ব্যবহৃত হয়েছে যেখানে 'does' হওয়া উচিত।",` +
		`"correction_explanation":"'Where' এবং 'do' সঠিক বানানে লিখতে হবে এবং 'he' তৃতীয় পুরুষ একবচন বিধায় 'does' ব্যবহার করতে হবে। তাই সঠিক অনুবাদ হবে 'Where does he go?'"},` +
		`"correct_translation":"Where does he go?"}`},
}

func gradeTurn(bengali, english string) string {
	return fmt.Sprintf("বাংলা বাক্য: %s\nইংরেজি অনুবাদ: %s\n%s", bengali, english, gradeInstruction)
}

// buildGradeMessages returns the few-shot turns followed by the real pair.
func buildGradeMessages(req GradeRequest) []llm.Message {
	msgs := make([]llm.Message, 0, len(gradeFewShot)+1)
	msgs = append(msgs, gradeFewShot...)
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: gradeTurn(req.Bengali, req.English)})
}

// buildSentenceMessage constructs the user message for sentence generation.
func buildSentenceMessage(req SentenceRequest, cfg Config) string {
	band := progress.BandFor(req.Level)

	var b strings.Builder

	fmt.Fprintf(&b, "Level: %d of 100\n", req.Level)
	fmt.Fprintf(&b, "Band: %s (%s)\n", band, band.Describe())
	fmt.Fprintf(&b, "Sentence type: %s\n", req.SentenceType)
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)

	b.WriteString("\nWeak areas:\n")
	b.WriteString(buildWeaknesses(req.Weaknesses))

	b.WriteString("\n\nRecent attempts:\n")
	b.WriteString(buildAttempts(req.Recent, cfg.MaxRecentAttempts))

	b.WriteString("\n\nAlready given to this learner:\n")
	b.WriteString(buildDedup(req.Avoid, cfg.MaxPriorSentences))

	return b.String()
}

// buildDedup lists prior sentences, most recent N only. "None" when empty.
func buildDedup(prior []string, max int) string {
	if len(prior) == 0 {
		return "None"
	}
	if max > 0 && len(prior) > max {
		prior = prior[len(prior)-max:]
	}

	var b strings.Builder
	for i, s := range prior {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildAttempts(recent []PastAttempt, max int) string {
	if len(recent) == 0 {
		return "None"
	}
	if max > 0 && len(recent) > max {
		recent = recent[len(recent)-max:]
	}

	var b strings.Builder
	for i, a := range recent {
		mark := "correct"
		if !a.Correct {
			mark = "incorrect"
			if a.ErrorDetail != "" {
				mark += " (" + a.ErrorDetail + ")"
			}
		}
		fmt.Fprintf(&b, "%d. %s -> %s [%s]\n", i+1, a.Sentence, a.Translation, mark)
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildWeaknesses lists categories by descending count, ties by name.
func buildWeaknesses(w map[string]int) string {
	type kv struct {
		cat string
		n   int
	}
	var list []kv
	for c, n := range w {
		if n > 0 {
			list = append(list, kv{c, n})
		}
	}
	if len(list) == 0 {
		return "None"
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].cat < list[j].cat
	})

	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = fmt.Sprintf("%s (%d)", e.cat, e.n)
	}
	return strings.Join(parts, ", ")
}

// buildChatMessages replays at most max history turns, then the question.
func buildChatMessages(req ChatRequest, max int) []llm.Message {
	history := req.History
	if max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}

	msgs := make([]llm.Message, 0, len(history)+1)
	for _, t := range history {
		role := llm.RoleUser
		if t.FromModel {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Question})
}
