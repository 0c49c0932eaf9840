package parser

import (
	"github.com/maltedev/amazon-review-analyzer/internal/models"
)

type Parser interface {
	ParseProductPage(html string, url string) (*models.ProductRecord, error)
	ParseReviews(html string) (models.ReviewSet, error)
}
