package session

// Status tracks a discovery session (or batch) through its phases. Transition
// legality is enforced here, not in route handlers.
type Status string

const (
	StatusDiscovering    Status = "discovering"
	StatusReadyForReview Status = "ready_for_review"
	StatusReviewed       Status = "reviewed"
	StatusScraping       Status = "scraping"
	StatusAnalyzing      Status = "analyzing"
	StatusFinalizing     Status = "finalizing"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// transitions lists the legal forward moves. ready_for_review/reviewed are
// used only by the human-in-the-loop flow; the automated flow goes straight
// from discovering to scraping with select-all semantics.
var transitions = map[Status][]Status{
	StatusDiscovering:    {StatusReadyForReview, StatusScraping},
	StatusReadyForReview: {StatusReviewed, StatusScraping},
	StatusReviewed:       {StatusScraping},
	StatusScraping:       {StatusAnalyzing},
	StatusAnalyzing:      {StatusFinalizing},
	StatusFinalizing:     {StatusCompleted},
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDiscovering, StatusReadyForReview, StatusReviewed,
		StatusScraping, StatusAnalyzing, StatusFinalizing,
		StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is legal. failed is
// reachable from any non-terminal state; nothing leaves a terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	for _, allowed := range transitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}
