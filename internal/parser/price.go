package parser

import (
	"strings"
	"unicode"
)

const (
	domesticDomain = "amazon.com.tr"
	usDomain       = "amazon.com"
)

// NormalizePrice cleans raw price text according to the storefront in url.
// Text without digits is a label such as "Ücretsiz" and is kept verbatim.
func NormalizePrice(text, url string) string {
	text = strings.TrimSpace(text)
	if !strings.ContainsFunc(text, unicode.IsDigit) {
		return text
	}

	switch {
	case strings.Contains(url, domesticDomain):
		return keepDigits(text, ",") + " TL"
	case strings.Contains(url, usDomain):
		return "$" + keepDigits(text, ".")
	default:
		return text
	}
}

func keepDigits(s, separators string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || strings.ContainsRune(separators, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
