package progress

// Band is a coarse difficulty label for a 1-100 level.
type Band string

const (
	BandBeginner          Band = "beginner"
	BandElementary        Band = "elementary"
	BandIntermediate      Band = "intermediate"
	BandUpperIntermediate Band = "upper-intermediate"
	BandAdvanced          Band = "advanced"
)

// BandFor maps a level in [1, 100] to its band. Out-of-range values are
// clamped to the nearest band.
func BandFor(level int) Band {
	switch {
	case level <= 20:
		return BandBeginner
	case level <= 40:
		return BandElementary
	case level <= 60:
		return BandIntermediate
	case level <= 80:
		return BandUpperIntermediate
	default:
		return BandAdvanced
	}
}

// Describe returns the guidance given to the sentence writer for a band.
func (b Band) Describe() string {
	switch b {
	case BandBeginner:
		return "very short sentences (3-6 words), present tense, everyday words"
	case BandElementary:
		return "short sentences (5-8 words), simple past and future allowed"
	case BandIntermediate:
		return "medium sentences (7-12 words), continuous and perfect tenses, common idioms"
	case BandUpperIntermediate:
		return "longer sentences (10-15 words), subordinate clauses, less common vocabulary"
	default:
		return "long sentences (12-20 words), nuanced vocabulary, conditionals and passive voice"
	}
}
