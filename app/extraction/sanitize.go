package extraction

import "strings"

// CleanText strips null bytes and control characters (keeping newlines and
// tabs) and repairs invalid UTF-8. The persistence layer rejects text
// containing either.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)

	return strings.ToValidUTF8(s, "")
}

func cleanContent(c *Content) {
	c.Title = strings.TrimSpace(CleanText(c.Title))
	c.Summary = strings.TrimSpace(CleanText(c.Summary))
	c.Content = strings.TrimSpace(CleanText(c.Content))
	c.RawBody = CleanText(c.RawBody)
	c.Author = strings.TrimSpace(CleanText(c.Author))
	for i, kw := range c.Keywords {
		c.Keywords[i] = strings.TrimSpace(CleanText(kw))
	}
}
