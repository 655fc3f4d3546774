// Package disruption scrapes service disruption notices from the operator's
// traffic report page.
package disruption

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"oeffimonitor.org/internal/logging"
	"oeffimonitor.org/internal/models"
)

// Scraper fetches the report page and keeps the notices of one region.
type Scraper struct {
	url        string
	region     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewScraper creates a Scraper. An empty url disables scraping.
func NewScraper(url, region string, timeout time.Duration, logger *slog.Logger) *Scraper {
	return &Scraper{
		url:        url,
		region:     region,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.ForComponent(logger, "disruption_scraper"),
	}
}

// Enabled reports whether a report page is configured.
func (s *Scraper) Enabled() bool {
	return s.url != ""
}

// Warnings downloads the report page and returns the notices of the configured
// region in page order. A disabled scraper returns no warnings and no error.
func (s *Scraper) Warnings(ctx context.Context) ([]models.Warning, error) {
	if !s.Enabled() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build report request: %w", err)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to request report page: %w", err)
	}
	defer logging.DrainAndClose(resp.Body, s.logger, "report_page_body")
	logging.LogUpstreamRequest(s.logger, "disruptions", s.url, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to request report page: %s", resp.Status)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to detect report page encoding: %w", err)
	}
	return ParseReports(body, s.region)
}

// ParseReports extracts the notices listed under region from a report page.
// Entries with an empty title or description are skipped.
func ParseReports(r io.Reader, region string) ([]models.Warning, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report page: %w", err)
	}

	warnings := make([]models.Warning, 0)
	doc.Find("div.jp-start > ul > li").Each(func(_ int, report *goquery.Selection) {
		if report.Find("h3 > a").Text() != region {
			return
		}
		report.Find(".linverz_linie").Each(func(_ int, message *goquery.Selection) {
			title := strings.TrimSpace(message.Find(".linverz_lnr_stoerung").Text())
			description := strings.TrimSpace(message.Find(".linverz_teilstrecke > strong").Text())
			if title == "" || description == "" {
				return
			}
			warnings = append(warnings, models.Warning{Title: title, Description: description})
		})
	})
	return warnings, nil
}
