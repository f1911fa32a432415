package memory

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists common legal entity suffixes to strip during company
// name normalization.
var legalSuffixes = []string{
	" llc", " l.l.c.", " l.l.c",
	" inc", " inc.", " incorporated",
	" corp", " corp.", " corporation",
	" ltd", " ltd.", " limited",
	" lp", " l.p.", " l.p",
	" llp", " l.l.p.", " l.l.p",
	" gmbh", " ag", " sa", " s.a.",
	" bv", " b.v.",
	" co", " co.",
	" plc", " p.l.c.",
	" pllc",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

// stripMarks removes combining marks after NFD decomposition, so "Café"
// matches "Cafe".
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeCompany standardizes a company name for fingerprinting and
// blacklist keys: lowercase, diacritics folded, legal suffixes removed,
// punctuation stripped, whitespace collapsed.
func NormalizeCompany(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(stripMarks, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "and",
		"-", " ",
		"/", " ",
		"(", " ",
		")", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// NormalizeTitle standardizes a job title for fingerprinting. Lighter touch
// than company normalization: titles carry no legal suffixes.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}

	if folded, _, err := transform.String(stripMarks, title); err == nil {
		title = folded
	}
	title = strings.ToLower(title)

	title = strings.NewReplacer(
		",", " ",
		".", "",
		"/", " ",
		"-", " ",
		"(", " ",
		")", " ",
	).Replace(title)

	title = multiSpaceRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
