package models

import (
	"strings"
	"time"
)

const (
	TitleNotFound  = "Title not found"
	PriceNotFound  = "Price not found"
	RatingNotFound = "Rating not found"
	CountNotFound  = "Count not found"

	// ErrorValue replaces title and price when an attempt failed outright.
	ErrorValue = "Error"
	// NotAvailable replaces rating fields on error records.
	NotAvailable = "N/A"

	// ErrAllRetriesFailed is the Error text of an exhausted record.
	ErrAllRetriesFailed = "all retries failed"
)

// FailureKind tells apart the ways a scrape can end without a product.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureNetwork   FailureKind = "network"
	FailureException FailureKind = "exception"
	FailureExhausted FailureKind = "exhausted"
)

// ProductRecord is the structured result of one product page analysis.
// Missing fields hold sentinel strings; ImageURL is empty when no image
// was found.
type ProductRecord struct {
	Title       string      `json:"title"`
	Price       string      `json:"price"`
	ImageURL    string      `json:"image_url,omitempty"`
	StarRating  string      `json:"star_rating"`
	RatingCount string      `json:"rating_count"`
	Error       string      `json:"error,omitempty"`
	Failure     FailureKind `json:"failure,omitempty"`
}

func NewProductRecord() *ProductRecord {
	return &ProductRecord{
		Title:       TitleNotFound,
		Price:       PriceNotFound,
		StarRating:  RatingNotFound,
		RatingCount: CountNotFound,
	}
}

// NewErrorRecord builds the record returned when the last attempt failed
// with a network or unexpected error.
func NewErrorRecord(kind FailureKind, msg string) *ProductRecord {
	return &ProductRecord{
		Title:       ErrorValue,
		Price:       ErrorValue,
		StarRating:  NotAvailable,
		RatingCount: NotAvailable,
		Error:       msg,
		Failure:     kind,
	}
}

// NewExhaustedRecord builds the record returned when every attempt came
// back incomplete.
func NewExhaustedRecord() *ProductRecord {
	return &ProductRecord{
		Title:       TitleNotFound,
		Price:       PriceNotFound,
		StarRating:  NotAvailable,
		RatingCount: NotAvailable,
		Error:       ErrAllRetriesFailed,
		Failure:     FailureExhausted,
	}
}

func (p *ProductRecord) HasTitle() bool {
	return p.Title != TitleNotFound && p.Title != ErrorValue
}

func (p *ProductRecord) HasPrice() bool {
	return p.Price != PriceNotFound && p.Price != ErrorValue
}

// IsComplete reports whether the record satisfies the retry success condition.
func (p *ProductRecord) IsComplete() bool {
	return p.HasTitle() && p.HasPrice()
}

func (p *ProductRecord) HasImage() bool {
	return p.ImageURL != ""
}

// HasRating reports whether StarRating holds a real value rather than a sentinel.
func (p *ProductRecord) HasRating() bool {
	return isValue(p.StarRating)
}

func (p *ProductRecord) HasRatingCount() bool {
	return isValue(p.RatingCount)
}

func (p *ProductRecord) Failed() bool {
	return p.Error != ""
}

func isValue(s string) bool {
	return s != "" && s != NotAvailable && !strings.Contains(strings.ToLower(s), "not found")
}

// ReviewSet holds unique review texts. Order carries no meaning.
type ReviewSet []string

func (r ReviewSet) Len() int {
	return len(r)
}

func (r ReviewSet) IsEmpty() bool {
	return len(r) == 0
}

// SentimentResult pairs a review with the raw model verdict.
type SentimentResult struct {
	Review      string `json:"review"`
	Sentiment   string `json:"sentiment"`
	Failed      bool   `json:"failed,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// Report is everything one analysis produced.
type Report struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Product      *ProductRecord    `json:"product"`
	TotalReviews int               `json:"total_reviews"`
	ReviewsError string            `json:"reviews_error,omitempty"`
	Results      []SentimentResult `json:"results"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// Sampled reports whether only part of the collected reviews was classified.
func (r *Report) Sampled() bool {
	return len(r.Results) < r.TotalReviews
}
