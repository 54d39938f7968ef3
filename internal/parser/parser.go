package parser

import "errors"

var ErrNoProductLink = errors.New("no product link on search page")

type Parser interface {
	// ExtractProductLink returns the href of the first search result title link.
	ExtractProductLink(html string) (string, error)
	ParseProductPage(html string) (*ProductDetails, error)
}

// ProductDetails holds the raw text pulled from a product page. Empty fields
// were not present on the page.
type ProductDetails struct {
	Rank     string
	Price    string
	Metadata string
	// HasDetails reports whether the detail bullets container was found.
	HasDetails bool
}
