package offerletter

import (
	"regexp"
	"strings"
)

// UniversityInfo holds the hints found in an offer letter before any model call.
type UniversityInfo struct {
	University string `json:"university"`
	Program    string `json:"program"`
	Location   string `json:"location"`
	Country    string `json:"country"`
}

const (
	capWord = `[A-Z][A-Za-z'&\-]*`
	sp      = `[ \t]+`
	// capitalised words, optionally joined by lowercase connectors ("of", "and", "the")
	capPhrase = capWord + `(?:` + sp + `(?:(?:of|and|the|for|in|&)` + sp + `)?[A-Z(][A-Za-z'&()\-]*)*`
)

// Patterns are tried in order; the first match wins.
// When a pattern has a capture group, the group is the value.
var (
	universityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`University` + sp + `of` + sp + capPhrase),
		regexp.MustCompile(`(?:` + capWord + sp + `){1,5}University\b`),
		regexp.MustCompile(`(?:` + capWord + sp + `){0,4}(?:Institute|College)` + sp + `of` + sp + capPhrase),
		regexp.MustCompile(`(?:` + capWord + sp + `){1,4}(?:College|Institute|Polytechnic)\b`),
		regexp.MustCompile(`(?i)(?:university|institution|provider)(?:` + sp + `name)?[ \t]*:[ \t]*([^\n]+)`),
	}

	programPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Bachelor|Master|Doctor)(?:'s)?` + sp + `(?:of|in)` + sp + capPhrase),
		regexp.MustCompile(`(?:Graduate Diploma|Graduate Certificate|Advanced Diploma|Diploma|Certificate [IVX]+)` + sp + `(?:of|in)` + sp + capPhrase),
		regexp.MustCompile(`(?i)(?:program(?:me)?|course)(?:` + sp + `(?:name|title))?[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`\b(?:MBA|PhD|BSc|MSc|BEng|MEng|LLM)\b(?:` + sp + `(?:in` + sp + `)?` + capPhrase + `)?`),
	}

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)campus(?:` + sp + `location)?[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?:[Ll]ocated|[Bb]ased)` + sp + `(?:in|at)` + sp + `(` + capWord + `(?:` + sp + capWord + `)*(?:,[ \t]*` + capWord + `(?:` + sp + capWord + `)*)?)`),
		regexp.MustCompile(`\b(` + capWord + `(?:` + sp + capWord + `)?,[ \t]*(?:` + countryAlternation() + `))(?:$|[^A-Za-z])`),
	}
)

// ExtractUniversityInfo guesses the university, program and location named in `text`.
// Fields are empty when no pattern matches.
func ExtractUniversityInfo(text string) UniversityInfo {
	info := UniversityInfo{
		University: firstMatch(universityPatterns, text),
		Program:    firstMatch(programPatterns, text),
		Location:   firstMatch(locationPatterns, text),
	}
	if info.Country = FindCountry(info.Location); info.Country == "" {
		info.Country = FindCountry(text)
	}
	return info
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		val := m[0]
		if len(m) > 1 && m[1] != "" {
			val = m[1]
		}
		if val = cleanMatch(val); val != "" {
			return val
		}
	}
	return ""
}

func cleanMatch(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,;:-")
}

// country names and the aliases found in letters
var countries = []struct {
	name    string
	aliases []string
}{
	{"Australia", nil},
	{"Canada", nil},
	{"United Kingdom", []string{"UK", "U.K.", "England", "Scotland", "Wales"}},
	{"United States", []string{"USA", "U.S.A.", "United States of America"}},
	{"New Zealand", nil},
	{"Ireland", nil},
	{"Germany", nil},
	{"France", nil},
	{"Netherlands", nil},
	{"Japan", nil},
	{"Singapore", nil},
}

var countryRegexes = buildCountryRegexes()

func countryAlternation() string {
	alts := make([]string, 0, len(countries)*2)
	for _, c := range countries {
		alts = append(alts, regexp.QuoteMeta(c.name))
		for _, a := range c.aliases {
			alts = append(alts, regexp.QuoteMeta(a))
		}
	}
	return strings.Join(alts, "|")
}

func buildCountryRegexes() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(countries))
	for i, c := range countries {
		alts := []string{regexp.QuoteMeta(c.name)}
		for _, a := range c.aliases {
			alts = append(alts, regexp.QuoteMeta(a))
		}
		res[i] = regexp.MustCompile(`(?:^|[^A-Za-z])(?:` + strings.Join(alts, "|") + `)(?:$|[^A-Za-z])`)
	}
	return res
}

// FindCountry returns the canonical name of the first known country mentioned in `s`.
func FindCountry(s string) string {
	if s == "" {
		return ""
	}
	best, bestIdx := "", -1
	for i, re := range countryRegexes {
		if loc := re.FindStringIndex(s); loc != nil && (bestIdx < 0 || loc[0] < bestIdx) {
			best, bestIdx = countries[i].name, loc[0]
		}
	}
	return best
}
