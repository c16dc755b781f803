package session

// ScrapeStatus tracks a single discovered URL through extraction. The status
// only moves forward: pending -> scraping -> scraped|failed.
type ScrapeStatus string

const (
	ScrapePending ScrapeStatus = "pending"
	ScrapeActive  ScrapeStatus = "scraping"
	ScrapeScraped ScrapeStatus = "scraped"
	ScrapeFailed  ScrapeStatus = "failed"
)

var scrapeRank = map[ScrapeStatus]int{
	ScrapePending: 0,
	ScrapeActive:  1,
	ScrapeScraped: 2,
	ScrapeFailed:  2,
}

func (s ScrapeStatus) IsTerminal() bool {
	return s == ScrapeScraped || s == ScrapeFailed
}

// CanTransitionTo rejects any regression and any move out of a terminal state.
func (s ScrapeStatus) CanTransitionTo(next ScrapeStatus) bool {
	cur, ok := scrapeRank[s]
	if !ok {
		return false
	}
	nxt, ok := scrapeRank[next]
	if !ok {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return nxt > cur
}
