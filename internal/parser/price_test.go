package parser

import (
	"testing"
)

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		url      string
		expected string
	}{
		{"US dollars", "$1,299.99", "https://www.amazon.com/dp/B000TEST", "$1299.99"},
		{"US digits only", "19.99", "https://amazon.com/dp/B000TEST", "$19.99"},
		{"Turkish lira", "1.299,90 TL", "https://www.amazon.com.tr/dp/B000TEST", "1299,90 TL"},
		{"Turkish digits and separators", "249,99", "https://www.amazon.com.tr/dp/B000TEST", "249,99 TL"},
		{"Label without digits", "Currently unavailable", "https://www.amazon.com/dp/B000TEST", "Currently unavailable"},
		{"Other storefront passes through", " 24,99 € ", "https://www.amazon.de/dp/B000TEST", "24,99 €"},
		{"Surrounding whitespace", "  $5.00 ", "https://www.amazon.com/dp/B000TEST", "$5.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePrice(tt.text, tt.url)
			if result != tt.expected {
				t.Errorf("NormalizePrice(%q, %q) = %q, want %q", tt.text, tt.url, result, tt.expected)
			}
		})
	}
}
