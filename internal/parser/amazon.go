package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	rankMarker = "Best Sellers Rank"
)

// Metadata markers in precedence order within a single line.
var metadataMarkers = []string{"Publisher", "Publication date"}

type Selectors struct {
	ResultLink      string
	DetailContainer string
	PriceWhole      string
}

func DefaultSelectors() Selectors {
	return Selectors{
		ResultLink:      "a.a-link-normal.s-no-outline",
		DetailContainer: "#detailBulletsWrapper_feature_div",
		PriceWhole:      ".a-price-whole",
	}
}

type AmazonParser struct {
	selectors Selectors
}

func NewAmazonParser() *AmazonParser {
	return NewAmazonParserWithSelectors(DefaultSelectors())
}

func NewAmazonParserWithSelectors(s Selectors) *AmazonParser {
	return &AmazonParser{selectors: s}
}

func (p *AmazonParser) ExtractProductLink(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var href string
	doc.Find(p.selectors.ResultLink).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if v, ok := s.Attr("href"); ok && strings.TrimSpace(v) != "" {
			href = strings.TrimSpace(v)
			return false
		}
		return true
	})

	if href == "" {
		return "", ErrNoProductLink
	}

	return href, nil
}

func (p *AmazonParser) ParseProductPage(html string) (*ProductDetails, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	details := &ProductDetails{}

	container := doc.Find(p.selectors.DetailContainer).First()
	if container.Length() > 0 {
		details.HasDetails = true
		details.Rank, details.Metadata = scanDetailLines(container.Text())
	}

	details.Price = strings.TrimSpace(doc.Find(p.selectors.PriceWhole).First().Text())

	return details, nil
}

// scanDetailLines walks the container text line by line. The first line
// holding the rank marker wins, and likewise the first line holding any
// metadata marker.
func scanDetailLines(text string) (rank, metadata string) {
	for _, line := range strings.Split(text, "\n") {
		if rank == "" && strings.Contains(line, rankMarker) {
			rank = strings.TrimSpace(line)
		}

		if metadata == "" && containsAny(line, metadataMarkers) {
			metadata = strings.TrimSpace(line)
		}

		if rank != "" && metadata != "" {
			break
		}
	}
	return rank, metadata
}

func containsAny(line string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}
