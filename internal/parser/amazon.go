package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
)

// Selector lists are ordered from most specific to most permissive.
var (
	TitleRules = []Rule{
		{Selector: "#productTitle"},
	}

	ImageRules = imageRules(
		"img#landingImage",
		"div#imgTagWrapperId img",
		"div#main-image-container img",
		"div.imgTagWrapper img",
		"div#altImages ul li.selected img",
		".a-dynamic-image.a-stretch-horizontal",
	)

	PriceRules = textRules(
		"#corePrice_desktop .a-offscreen",
		"#corePriceDisplay_desktop_feature_div .a-offscreen",
		".priceToPay span.a-offscreen",
		"span#priceblock_ourprice",
		"span#priceblock_dealprice",
		"span#price_inside_buybox",
		"#apex_desktop .a-offscreen",
		`span[data-a-size="xl"] span.a-offscreen`,
		`span[data-a-size="l"] span.a-offscreen`,
		".a-price-whole",
	)

	StarRatingRules = []Rule{
		{Selector: "#acrPopover .a-icon-alt"},
	}

	RatingCountRules = []Rule{
		{Selector: "#acrCustomerReviewText"},
	}

	ReviewRules = textRules(
		"span[data-hook='review-body']",
		"div.review-text-content > span",
		"div.a-expander-content.reviewText.review-text-content > span",
		"div[data-hook='review-collapsed']",
	)
)

// imageAttrs prefers src unless it holds an inline placeholder.
var imageAttrs = []Attr{
	{Name: "src", SkipPrefix: "data:image"},
	{Name: "data-old-hires"},
}

type AmazonParser struct {
	fields  Strategy
	reviews Strategy
}

func NewAmazonParser() *AmazonParser {
	return &AmazonParser{
		fields:  FirstMatch,
		reviews: Union,
	}
}

func (p *AmazonParser) ParseProductPage(html string, url string) (*models.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	record := models.NewProductRecord()

	if title, ok := p.first(doc, TitleRules); ok {
		record.Title = title
	}

	if image, ok := p.first(doc, ImageRules); ok {
		record.ImageURL = image
	}

	if price, ok := p.first(doc, PriceRules); ok {
		record.Price = NormalizePrice(price, url)
	}

	if rating, ok := p.first(doc, StarRatingRules); ok {
		record.StarRating = rating
	}

	if count, ok := p.first(doc, RatingCountRules); ok {
		record.RatingCount = count
	}

	return record, nil
}

func (p *AmazonParser) ParseReviews(html string) (models.ReviewSet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return models.ReviewSet(p.reviews(doc, ReviewRules)), nil
}

func (p *AmazonParser) first(doc *goquery.Document, rules []Rule) (string, bool) {
	values := p.fields(doc, rules)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func textRules(selectors ...string) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rules = append(rules, Rule{Selector: s})
	}
	return rules
}

func imageRules(selectors ...string) []Rule {
	rules := make([]Rule, 0, len(selectors))
	for _, s := range selectors {
		rules = append(rules, Rule{Selector: s, Attrs: imageAttrs})
	}
	return rules
}
