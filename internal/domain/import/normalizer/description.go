package normalizer

import (
	"regexp"
	"strings"
)

var (
	refSuffix  = regexp.MustCompile(`\s+(?:#|REF:?\s*)?[A-Z]*\d{4,}$`)
	dateSuffix = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}(?:/\d{2,4})?$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Noise prefixes banks put in front of the counterparty
var descriptionPrefixes = []string{
	"POS PURCHASE ", "CARD PURCHASE ", "DEBIT CARD ", "DEBIT ORDER ",
	"DIRECT DEBIT ", "STANDING ORDER ", "ACH ", "POS ", "VISA ", "MASTERCARD ",
}

// CanonicalDescription strips bank noise so that recurring payments to the
// same counterparty share one key: "POS UTILITY CO 123456 12/01" and
// "Utility Co 998877" both become "utility co".
func CanonicalDescription(raw string) string {
	result := whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")

	upper := strings.ToUpper(result)
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	// Dates and references can be stacked; strip until stable.
	result = strings.ToUpper(result)
	for {
		next := refSuffix.ReplaceAllString(dateSuffix.ReplaceAllString(result, ""), "")
		if next == result {
			break
		}
		result = next
	}

	return strings.ToLower(strings.TrimSpace(result))
}
