package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/maltedev/amazon-review-analyzer/internal/browser"
	"github.com/maltedev/amazon-review-analyzer/internal/models"
	"github.com/maltedev/amazon-review-analyzer/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testURL      = "https://www.amazon.com/dp/B000TEST"
	completePage = `<span id="productTitle">Test Mouse</span><span class="a-price-whole">19.99</span>`
	titleOnly    = `<span id="productTitle">Test Mouse</span>`
	captchaPage  = `<form action="/errors/validateCaptcha"></form>`
)

// step scripts one navigation of the fake session.
type step struct {
	navErr     error
	html       string
	contentErr error
}

type fakeSession struct {
	steps      []step
	navigated  int
	current    step
	navigateTo []string
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigateTo = append(f.navigateTo, url)
	if f.navigated >= len(f.steps) {
		return fmt.Errorf("unexpected navigation %d", f.navigated+1)
	}
	f.current = f.steps[f.navigated]
	f.navigated++
	if f.current.navErr != nil {
		return fmt.Errorf("%w: %v", browser.ErrNavigation, f.current.navErr)
	}
	return nil
}

func (f *fakeSession) Content() (string, error) {
	if f.current.contentErr != nil {
		return "", f.current.contentErr
	}
	return f.current.html, nil
}

type MockSnapshotter struct {
	mock.Mock
}

func (m *MockSnapshotter) Save(reason, html string) (string, error) {
	args := m.Called(reason, html)
	return args.String(0), args.Error(1)
}

type countingDelay struct {
	calls int
	err   error
}

func (c *countingDelay) Wait(ctx context.Context) error {
	c.calls++
	return c.err
}

type brokenParser struct {
	parser.Parser
}

func (brokenParser) ParseProductPage(html, url string) (*models.ProductRecord, error) {
	return nil, errors.New("unexpected markup")
}

func newTestScraper(session Session, store Snapshotter, retryDelay *countingDelay) *AmazonScraper {
	return NewAmazonScraper(session, parser.NewAmazonParser(), store, Options{
		MaxRetries:   3,
		Settle:       &countingDelay{},
		RetryDelay:   retryDelay,
		ReviewSettle: &countingDelay{},
	}, slog.Default())
}

func TestScrapeProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("success on second attempt skips the third", func(t *testing.T) {
		session := &fakeSession{steps: []step{
			{navErr: errors.New("net::ERR_CONNECTION_RESET")},
			{html: completePage},
			{html: completePage},
		}}
		store := new(MockSnapshotter)
		delay := &countingDelay{}

		record := newTestScraper(session, store, delay).ScrapeProduct(ctx, testURL)

		assert.Equal(t, "Test Mouse", record.Title)
		assert.Equal(t, "$19.99", record.Price)
		assert.Empty(t, record.Error)
		assert.Equal(t, models.FailureNone, record.Failure)
		assert.Equal(t, 2, session.navigated)
		assert.Equal(t, 1, delay.calls)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("incomplete attempt saves a snapshot per missing field", func(t *testing.T) {
		session := &fakeSession{steps: []step{
			{html: titleOnly},
			{html: completePage},
		}}
		store := new(MockSnapshotter)
		store.On("Save", "price_not_found", titleOnly).Return("debug_html/x.html", nil).Once()

		record := newTestScraper(session, store, &countingDelay{}).ScrapeProduct(ctx, testURL)

		assert.True(t, record.IsComplete())
		store.AssertExpectations(t)
	})

	t.Run("all attempts incomplete", func(t *testing.T) {
		session := &fakeSession{steps: []step{
			{html: captchaPage}, {html: captchaPage}, {html: captchaPage},
		}}
		store := new(MockSnapshotter)
		store.On("Save", "title_not_found", captchaPage).Return("t.html", nil).Times(3)
		store.On("Save", "price_not_found", captchaPage).Return("p.html", nil).Times(3)
		delay := &countingDelay{}

		record := newTestScraper(session, store, delay).ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.TitleNotFound, record.Title)
		assert.Equal(t, models.PriceNotFound, record.Price)
		assert.Equal(t, models.ErrAllRetriesFailed, record.Error)
		assert.Equal(t, models.FailureExhausted, record.Failure)
		assert.Equal(t, 3, session.navigated)
		assert.Equal(t, 2, delay.calls, "no delay after the final attempt")
		store.AssertExpectations(t)
	})

	t.Run("network failure on every attempt", func(t *testing.T) {
		netErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
		session := &fakeSession{steps: []step{{navErr: netErr}, {navErr: netErr}, {navErr: netErr}}}
		store := new(MockSnapshotter)

		record := newTestScraper(session, store, &countingDelay{}).ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.ErrorValue, record.Title)
		assert.Equal(t, models.ErrorValue, record.Price)
		assert.Equal(t, models.NotAvailable, record.StarRating)
		assert.Equal(t, models.FailureNetwork, record.Failure)
		assert.Contains(t, record.Error, "ERR_NAME_NOT_RESOLVED")
		assert.NotEqual(t, models.ErrAllRetriesFailed, record.Error)
		store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("unexpected error on last attempt", func(t *testing.T) {
		readErr := errors.New("target closed")
		session := &fakeSession{steps: []step{
			{html: captchaPage},
			{html: captchaPage},
			{contentErr: readErr},
		}}
		store := new(MockSnapshotter)
		store.On("Save", mock.Anything, captchaPage).Return("x.html", nil)

		record := newTestScraper(session, store, &countingDelay{}).ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.FailureException, record.Failure)
		assert.Contains(t, record.Error, "target closed")
		store.AssertNumberOfCalls(t, "Save", 4)
	})

	t.Run("parse failure snapshots the page", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: completePage}}}
		store := new(MockSnapshotter)
		store.On("Save", "exception", completePage).Return("e.html", nil).Once()

		s := NewAmazonScraper(session, brokenParser{}, store, Options{
			MaxRetries: 1,
			Settle:     &countingDelay{},
			RetryDelay: &countingDelay{},
		}, slog.Default())

		record := s.ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.FailureException, record.Failure)
		store.AssertExpectations(t)
	})

	t.Run("snapshot write failure is not fatal", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: titleOnly}, {html: completePage}}}
		store := new(MockSnapshotter)
		store.On("Save", mock.Anything, mock.Anything).Return("", errors.New("read-only file system"))

		record := newTestScraper(session, store, &countingDelay{}).ScrapeProduct(ctx, testURL)

		assert.True(t, record.IsComplete())
	})

	t.Run("cancelled during retry delay", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: captchaPage}, {html: completePage}}}
		store := new(MockSnapshotter)
		store.On("Save", mock.Anything, mock.Anything).Return("x.html", nil)

		record := newTestScraper(session, store, &countingDelay{err: context.Canceled}).ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.FailureNetwork, record.Failure)
		assert.Equal(t, 1, session.navigated)
	})

	t.Run("nil store skips snapshots", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: captchaPage}, {html: captchaPage}, {html: captchaPage}}}

		record := newTestScraper(session, nil, &countingDelay{}).ScrapeProduct(ctx, testURL)

		assert.Equal(t, models.FailureExhausted, record.Failure)
	})
}

func TestCollectReviews(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicates collapse", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: `
			<span data-hook="review-body">Great!</span>
			<span data-hook="review-body">Great!</span>
			<div class="review-text-content"><span>Too small.</span></div>`}}}

		reviews, err := newTestScraper(session, nil, &countingDelay{}).CollectReviews(ctx, testURL)

		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Great!", "Too small."}, []string(reviews))
		assert.Equal(t, []string{testURL}, session.navigateTo)
	})

	t.Run("empty page is not an error", func(t *testing.T) {
		session := &fakeSession{steps: []step{{html: completePage}}}

		reviews, err := newTestScraper(session, nil, &countingDelay{}).CollectReviews(ctx, testURL)

		require.NoError(t, err)
		assert.True(t, reviews.IsEmpty())
	})

	t.Run("navigation failure is an error", func(t *testing.T) {
		session := &fakeSession{steps: []step{{navErr: errors.New("timeout")}}}

		reviews, err := newTestScraper(session, nil, &countingDelay{}).CollectReviews(ctx, testURL)

		require.Error(t, err)
		assert.True(t, errors.Is(err, browser.ErrNavigation))
		assert.Nil(t, reviews)
	})
}

func TestValidateProductURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		valid bool
	}{
		{"US store", "https://www.amazon.com/dp/B000TEST", true},
		{"Turkish store", "https://www.amazon.com.tr/dp/B000TEST", true},
		{"Bare domain", "https://amazon.de/dp/B000TEST", true},
		{"Plain http", "http://www.amazon.com/dp/B000TEST", false},
		{"Other site", "https://www.ebay.com/itm/1", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProductURL(tt.url)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidURL)
			}
		})
	}
}
