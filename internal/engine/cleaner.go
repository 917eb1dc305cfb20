package engine

import (
	"regexp"
	"strings"
)

// processorPrefixes strip payment processor markers from the front of a
// description. GOOGLE* is kept minimal so YouTube and Play descriptions still
// carry their own merchant text afterward.
var processorPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^APLPAY\s+`),
	regexp.MustCompile(`(?i)^SQ\s*\*`),
	regexp.MustCompile(`(?i)^TST\*\s*`),
	regexp.MustCompile(`(?i)^SP\s+`),
	regexp.MustCompile(`(?i)^PY\s*\*`),
	regexp.MustCompile(`(?i)^PP\s*\*`),
	regexp.MustCompile(`(?i)^GOOGLE\s*\*`),
	regexp.MustCompile(`(?i)^BT\s*\*?\s*DD\s*\*?`),
}

// statementSuffixes strip bank statement trailers: payee detail blocks,
// account identifiers, confirmation codes.
var statementSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s+DES:.*$`),
	regexp.MustCompile(`\s+ID:.*$`),
	regexp.MustCompile(`\s+INDN:.*$`),
	regexp.MustCompile(`\s+CO ID:.*$`),
	regexp.MustCompile(`(?i)\s+Confirmation#.*$`),
}

var (
	trailingStateRe = regexp.MustCompile(`\s{2,}[A-Z]{2}$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	nonAlphaRe      = regexp.MustCompile(`[^A-Za-z\s]`)
)

// Cleaner normalizes raw statement descriptions before rule matching. User
// strip patterns from config run after the built-in processor and statement
// strips.
type Cleaner struct {
	userStrips []*regexp.Regexp
}

// NewCleaner compiles the user strip patterns. Invalid patterns are skipped;
// the built-in strips always apply.
func NewCleaner(stripPatterns []string) *Cleaner {
	c := &Cleaner{}
	for _, p := range stripPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			continue
		}
		c.userStrips = append(c.userStrips, re)
	}
	return c
}

// Clean strips processor prefixes, statement suffixes, a trailing state code,
// and user patterns, then collapses whitespace.
func (c *Cleaner) Clean(description string) string {
	cleaned := description

	for _, re := range processorPrefixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	for _, re := range statementSuffixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = trailingStateRe.ReplaceAllString(cleaned, "")

	for _, re := range c.userStrips {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// ExtractMerchantName derives a readable merchant name from a description.
// Used as the fallback when no rule matches: the first three alphabetic words
// of the cleaned description, title-cased.
func (c *Cleaner) ExtractMerchantName(description string) string {
	cleaned := c.Clean(description)

	words := strings.Fields(nonAlphaRe.ReplaceAllString(cleaned, " "))
	if len(words) > 3 {
		words = words[:3]
	}
	if len(words) == 0 {
		return "Unknown"
	}

	for i, w := range words {
		words[i] = titleCase(w)
	}
	return strings.Join(words, " ")
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
}
