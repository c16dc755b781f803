package extraction

import (
	"regexp"
	"strings"
)

// minBodyLength is the shortest body accepted as a real article; anything
// under it is treated as boilerplate.
const minBodyLength = 150

// errorTitlePrefixes flag titles that lead with an error marker. Matching
// anywhere in the title would misfire on articles that merely contain the
// word ("Terror ...", "Trial and Error ...").
var errorTitlePrefixes = []string{
	"page not found",
	"not found",
	"404",
	"access denied",
	"error",
	"forbidden",
}

// errorTitleRe catches the unambiguous error phrases when they appear
// mid-title, on word boundaries.
var errorTitleRe = regexp.MustCompile(`\b(page not found|access denied)\b`)

// genericTitles are boilerplate titles no real article carries.
var genericTitles = []string{
	"untitled",
	"home",
	"homepage",
	"welcome",
	"news",
	"blog",
}

var errorBodyPhrases = []string{
	"page not found",
	"oops, it looks like",
	"the page you are looking for",
	"the page you requested",
	"does not exist",
	"could not be found",
}

// IsErrorPage detects known error-page and hallucination signatures. A tier-1
// "success" that matches is treated as a failure, forcing the fallback tier.
func IsErrorPage(title, body string) bool {
	lowTitle := strings.ToLower(strings.TrimSpace(title))
	lowBody := strings.ToLower(body)

	for _, phrase := range errorTitlePrefixes {
		if titleLeadsWith(lowTitle, phrase) {
			return true
		}
	}
	if errorTitleRe.MatchString(lowTitle) {
		return true
	}
	for _, generic := range genericTitles {
		if lowTitle == generic {
			return true
		}
	}
	for _, phrase := range errorBodyPhrases {
		if strings.Contains(lowBody, phrase) {
			return true
		}
	}

	return len(strings.TrimSpace(body)) < minBodyLength
}

// titleLeadsWith reports whether the title starts with the phrase as a whole
// word, so "404 - Missing" matches "404" but "4040 visions" does not.
func titleLeadsWith(title, phrase string) bool {
	if !strings.HasPrefix(title, phrase) {
		return false
	}
	rest := title[len(phrase):]
	if rest == "" {
		return true
	}
	b := rest[0]
	return !(b >= 'a' && b <= 'z' || b >= '0' && b <= '9')
}
