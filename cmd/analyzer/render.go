package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/maltedev/amazon-review-analyzer/internal/analyzer"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/sentiment"
)

const rule = "---"

// terminal renders analysis progress and results as plain text.
type terminal struct {
	w io.Writer
}

var _ analyzer.Observer = (*terminal)(nil)

func (t *terminal) Stage(msg string) {
	fmt.Fprintf(t.w, "... %s\n", msg)
}

func (t *terminal) Product(p *models.ProductRecord) {
	if p.Failed() || !p.HasTitle() {
		return
	}

	fmt.Fprintln(t.w)
	fmt.Fprintln(t.w, "Product Information")
	fmt.Fprintln(t.w, rule)
	fmt.Fprintln(t.w, p.Title)
	fmt.Fprintf(t.w, "Price: %s\n", p.Price)
	if p.HasRating() {
		fmt.Fprintf(t.w, "Rating: %s\n", p.StarRating)
	}
	if p.HasRatingCount() {
		fmt.Fprintf(t.w, "Total Ratings: %s\n", p.RatingCount)
	}
	if p.HasImage() {
		fmt.Fprintf(t.w, "Image: %s\n", p.ImageURL)
	} else {
		fmt.Fprintln(t.w, "No image found.")
	}
	fmt.Fprintln(t.w, rule)
}

func (t *terminal) Reviews(total, sampled int) {
	if sampled < total {
		fmt.Fprintf(t.w, "Analyzing a random sample of %d reviews.\n", sampled)
	}
	if sampled > 0 {
		fmt.Fprintf(t.w, "\nSentiment Analysis of %d Reviews\n", sampled)
	}
}

func (t *terminal) Classified(done, total int, result models.SentimentResult) {
	pct := done * 100 / total
	fmt.Fprintf(t.w, "[%3d%%] Analyzing review %d/%d...\n", pct, done, total)
	if done == total {
		fmt.Fprintln(t.w, "Analysis complete!")
	}
}

// Report prints the classified reviews. It is called after Analyze returns.
func (t *terminal) Report(r *models.Report) {
	if r == nil {
		return
	}
	if r.ReviewsError != "" {
		fmt.Fprintf(t.w, "Error fetching reviews: %s\n", r.ReviewsError)
	}
	if len(r.Results) == 0 {
		if r.Product != nil && r.Product.HasTitle() && r.ReviewsError == "" {
			fmt.Fprintln(t.w, "No reviews were found for this product.")
		}
		return
	}

	fmt.Fprintln(t.w)
	for i, res := range r.Results {
		fmt.Fprintln(t.w, resultHeading(i+1, res))
		for _, line := range strings.Split(res.Review, "\n") {
			fmt.Fprintf(t.w, "  > %s\n", line)
		}
		fmt.Fprintln(t.w)
	}
}

// Failure prints the user-facing explanation of a failed analysis.
func (t *terminal) Failure(r *models.Report, err error) {
	switch {
	case r != nil && r.Product != nil && r.Product.Failed():
		fmt.Fprintf(t.w, "Failed to retrieve product information: %s\n", r.Product.Error)
	case r != nil && r.Product != nil && !r.Product.HasTitle():
		fmt.Fprintln(t.w, "Could not retrieve product details. The page layout may have changed or it might be a captcha page. Check the saved debug HTML file if one was created.")
	default:
		fmt.Fprintf(t.w, "Error: %v\n", err)
	}
}

func resultHeading(n int, res models.SentimentResult) string {
	if strings.Contains(res.Sentiment, sentiment.SentimentError) {
		return fmt.Sprintf("⚠️ Review #%d | %s", n, res.Sentiment)
	}
	return fmt.Sprintf("Review #%d | Sentiment: %s", n, res.Sentiment)
}
