package session

// ArticleStatus is the lifecycle of a finalized article. published is
// terminal for pipeline logic; only the manual restore action moves a
// rejected article back to draft.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleRejected  ArticleStatus = "rejected"
	ArticleFailed    ArticleStatus = "failed"
)

var articleTransitions = map[ArticleStatus][]ArticleStatus{
	ArticleDraft:    {ArticlePublished, ArticleRejected},
	ArticleRejected: {ArticleDraft},
}

func (s ArticleStatus) CanTransitionTo(next ArticleStatus) bool {
	for _, allowed := range articleTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}
