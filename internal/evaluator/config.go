package evaluator

// Config controls the LLMEvaluator.
type Config struct {
	// Token budgets per call kind.
	SentenceMaxTokens int
	GradeMaxTokens    int
	ChatMaxTokens     int

	// Temperature for sentence writing. Grading always runs cold.
	SentenceTemperature float64

	// MaxPriorSentences is how many already-issued sentences are listed
	// as an avoid-list.
	MaxPriorSentences int

	// MaxRecentAttempts is how many graded attempts are summarised for
	// the sentence writer.
	MaxRecentAttempts int

	// MaxHistoryTurns caps the chat history replayed to the model.
	MaxHistoryTurns int
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		SentenceMaxTokens:   256,
		GradeMaxTokens:      1024,
		ChatMaxTokens:       1024,
		SentenceTemperature: 0.9,
		MaxPriorSentences:   10,
		MaxRecentAttempts:   5,
		MaxHistoryTurns:     20,
	}
}
