// Package itinerary parses free-text itinerary descriptions such as
// "7 Night Western Caribbean Cruise" into nights and destination.
package itinerary

import (
	"regexp"
	"strconv"
	"strings"
)

// Result is what could be extracted from an itinerary description.
// Zero values mean "not found".
type Result struct {
	Nights      int    `json:"nights"`
	Destination string `json:"destination"`
}

var (
	// "7 Night", "7-Night", "7 Nights", "7N", "7-nt"
	nightsRe = regexp.MustCompile(`(?i)\b(\d{1,3})\s*-?\s*(?:nights?|nts?|n)\b`)
	// trailing "Cruise", "Cruises" or "from <port>"
	cruiseSuffixRe = regexp.MustCompile(`(?i)\s+cruises?\s*$`)
	fromSuffixRe   = regexp.MustCompile(`(?i)\s+(?:from|departing|roundtrip)\s+.*$`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// Parse extracts the night count and destination from text
func Parse(text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}
	}

	var res Result
	dest := text
	if m := nightsRe.FindStringSubmatchIndex(text); m != nil {
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil && n > 0 {
			res.Nights = n
		}
		dest = text[:m[0]] + " " + text[m[1]:]
	}

	dest = fromSuffixRe.ReplaceAllString(dest, "")
	dest = cruiseSuffixRe.ReplaceAllString(dest, "")
	dest = spaceRe.ReplaceAllString(dest, " ")
	dest = strings.Trim(dest, " -,:|")
	res.Destination = dest

	return res
}
