package classify

import (
	"context"
	"fmt"
	"log/slog"
)

// Result carries the rubric score and the model's reasoning. Fallback marks a
// deterministic substitute used after a service failure; its score reads as
// not-mentioned so downstream always sees neutral/low rather than unset
// values.
type Result struct {
	Score     Score
	Reasoning string
	Fallback  bool
}

// CompletionClient is the slice of the completion service the classifier
// needs; tests substitute a fake.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, out any) error
}

type Classifier struct {
	llm CompletionClient
}

func NewClassifier(llm CompletionClient) *Classifier {
	return &Classifier{llm: llm}
}

const rubricPrompt = `Rate how the following article mentions the organization %q using exactly this rubric:
-1: the organization is mentioned negatively
 0: the organization is not mentioned
 1: the organization gets a brief mention
 2: the organization is the main focus, informational in tone
 3: the organization is the main focus, social-impact or inspiring in tone

Reply with a JSON object: {"score": <integer -1..3>, "reasoning": "<one or two sentences>"}

Title: %s

Article:
%s`

// maxBodyChars caps the article text sent to the completion service.
const maxBodyChars = 6000

// Classify scores the article against the ordinal rubric. A service failure
// never blocks the pipeline: the deterministic fallback result is returned
// instead.
func (c *Classifier) Classify(ctx context.Context, orgName, title, body string) Result {
	if c.llm == nil {
		return fallbackResult("classifier not configured")
	}

	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	var resp struct {
		Score     int    `json:"score"`
		Reasoning string `json:"reasoning"`
	}
	prompt := fmt.Sprintf(rubricPrompt, orgName, title, body)
	if err := c.llm.Complete(ctx, prompt, &resp); err != nil {
		slog.Warn("Classification service failed, using fallback", "title", title, "error", err)
		return fallbackResult("classification service unavailable")
	}

	score, err := ParseScore(resp.Score)
	if err != nil {
		slog.Warn("Classification returned out-of-rubric score, using fallback",
			"title", title, "score", resp.Score)
		return fallbackResult("classification returned invalid score")
	}

	return Result{Score: score, Reasoning: resp.Reasoning}
}

func fallbackResult(reason string) Result {
	return Result{
		Score:     ScoreNotMentioned,
		Reasoning: reason,
		Fallback:  true,
	}
}
