package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var cityPrefixStrippers = []string{
	"city of ",
	"ciudad de ",
	"cidade de ",
	"municipality of ",
	"santiago de ",
}

var citySuffixStrippers = []string{
	" city",
	" municipality",
	" metropolitan area",
	" metro area",
}

var caseFolder = cases.Fold()

// stripDiacritics decomposes and drops combining marks ("São" -> "Sao").
var stripDiacritics = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeCityName canonicalizes a raw city name: Unicode NFKC, case fold,
// whitespace collapse.
func normalizeCityName(name string) string {
	folded := caseFolder.String(norm.NFKC.String(name))
	return strings.Join(strings.Fields(folded), " ")
}

// cityKeyVariants generates lookup keys for a city name, most literal first.
// Each transformation feeds back into the queue so combinations (e.g.
// diacritic-stripped AND suffix-stripped) are covered. First catalog match
// wins.
func cityKeyVariants(name string) []string {
	seen := make(map[string]bool)
	var variants []string

	push := func(raw string) {
		if raw == "" {
			return
		}
		normalized := normalizeCityName(raw)
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		variants = append(variants, normalized)
	}

	push(name)
	if stripped, _, err := transform.String(stripDiacritics, name); err == nil && stripped != name {
		push(stripped)
	}

	for i := 0; i < len(variants); i++ {
		value := variants[i]
		for _, suffix := range citySuffixStrippers {
			if strings.HasSuffix(value, suffix) {
				push(strings.TrimSuffix(value, suffix))
			}
		}
		for _, prefix := range cityPrefixStrippers {
			if strings.HasPrefix(value, prefix) {
				push(strings.TrimPrefix(value, prefix))
			}
		}
		for _, delimiter := range []string{"(", ",", "/"} {
			if idx := strings.Index(value, delimiter); idx >= 0 {
				push(value[:idx])
			}
		}
		if strings.Contains(value, "-") {
			push(strings.ReplaceAll(value, "-", " "))
		}
	}

	return variants
}
