package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Attr names an attribute to read from a matched element. Values starting
// with SkipPrefix are treated as missing.
type Attr struct {
	Name       string
	SkipPrefix string
}

// Rule is one declarative extraction step. A rule without Attrs reads the
// element text.
type Rule struct {
	Selector string
	Attrs    []Attr
}

// Strategy turns a list of rules into values found in a document.
type Strategy func(doc *goquery.Document, rules []Rule) []string

// FirstMatch tries rules in order and returns the first non-empty value.
// Only the first element matched by each selector is considered.
func FirstMatch(doc *goquery.Document, rules []Rule) []string {
	for _, rule := range rules {
		sel := doc.Find(rule.Selector).First()
		if sel.Length() == 0 {
			continue
		}
		if value := rule.value(sel); value != "" {
			return []string{value}
		}
	}
	return nil
}

// Union applies every rule to every matching element and returns the
// distinct non-empty values in the order they were first seen.
func Union(doc *goquery.Document, rules []Rule) []string {
	seen := make(map[string]struct{})
	var values []string

	for _, rule := range rules {
		doc.Find(rule.Selector).Each(func(i int, s *goquery.Selection) {
			value := rule.value(s)
			if value == "" {
				return
			}
			if _, dup := seen[value]; dup {
				return
			}
			seen[value] = struct{}{}
			values = append(values, value)
		})
	}

	return values
}

func (r Rule) value(sel *goquery.Selection) string {
	if len(r.Attrs) == 0 {
		return strippedText(sel)
	}

	for _, attr := range r.Attrs {
		v, exists := sel.Attr(attr.Name)
		if !exists {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if attr.SkipPrefix != "" && strings.HasPrefix(v, attr.SkipPrefix) {
			continue
		}
		return v
	}
	return ""
}

// strippedText joins every descendant text node after trimming each one,
// so markup like "$19<sup>.99</sup>" reads as "$19.99".
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	collectText(sel, &b)
	return b.String()
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(i int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(strings.TrimSpace(c.Text()))
		case "#comment", "script", "style":
		default:
			collectText(c, b)
		}
	})
}
