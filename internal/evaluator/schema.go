package evaluator

import "github.com/abhisek/anuvad/internal/llm"

// SentenceSchema is the reply shape for sentence generation.
var SentenceSchema = &llm.Schema{
	Name:        "bengali-sentence",
	Description: "A single Bengali practice sentence for translation into English",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sentence": map[string]any{
				"type":        "string",
				"description": "One Bengali sentence written in Bengali script, nothing else",
			},
		},
		"required":             []any{"sentence"},
		"additionalProperties": false,
	},
}

// VerdictSchema is the reply shape for grading a translation.
var VerdictSchema = &llm.Schema{
	Name:        "translation-verdict",
	Description: "Verdict on an English translation of a Bengali sentence",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"status": map[string]any{
				"type": "string",
				"enum": []any{StatusCorrect, StatusIncorrect},
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Short feedback for the learner, in Bengali",
			},
			"errors": map[string]any{
				"type":        "array",
				"description": "One entry per mistake. Empty when the translation is correct.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category": map[string]any{
							"type":        "string",
							"description": "One of: spelling, grammar, tense, syntax, vocabulary, word_order, article, preposition, punctuation",
						},
						"detail": map[string]any{
							"type":        "string",
							"description": "What exactly is wrong, in English",
						},
					},
					"required":             []any{"category", "detail"},
					"additionalProperties": false,
				},
			},
			"why": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"incorrect_reason": map[string]any{
						"type":        "string",
						"description": "Why the translation is wrong, in Bengali. Empty when correct.",
					},
					"correction_explanation": map[string]any{
						"type":        "string",
						"description": "How to fix it, in Bengali. Empty when correct.",
					},
				},
				"required":             []any{"incorrect_reason", "correction_explanation"},
				"additionalProperties": false,
			},
			"correct_translation": map[string]any{
				"type":        "string",
				"description": "A natural, correct English translation",
			},
		},
		"required":             []any{"status", "message", "errors", "why", "correct_translation"},
		"additionalProperties": false,
	},
}
