package classify

import "fmt"

// Score is the 5-point ordinal rubric describing how an article mentions the
// organization. The legacy 3-way sentiment and the relevance tier are
// projections of this single value, computed here and nowhere else.
type Score int

const (
	ScoreNegative     Score = -1 // mentioned negatively
	ScoreNotMentioned Score = 0  // not mentioned
	ScoreBriefMention Score = 1  // brief mention
	ScoreMainFocus    Score = 2  // main focus, informational
	ScoreInspiring    Score = 3  // main focus, social-impact/inspiring
)

func (s Score) IsValid() bool {
	return s >= ScoreNegative && s <= ScoreInspiring
}

// Sentiment is the legacy 3-way projection.
func (s Score) Sentiment() string {
	switch s {
	case ScoreNegative:
		return "negative"
	case ScoreInspiring:
		return "positive"
	default:
		return "neutral"
	}
}

// Relevance is the tier projection used for filtering downstream.
func (s Score) Relevance() string {
	switch s {
	case ScoreMainFocus, ScoreInspiring:
		return "high"
	case ScoreNegative, ScoreBriefMention:
		return "medium"
	default:
		return "low"
	}
}

func ParseScore(n int) (Score, error) {
	s := Score(n)
	if !s.IsValid() {
		return 0, fmt.Errorf("score %d outside rubric range [-1,3]", n)
	}
	return s, nil
}
