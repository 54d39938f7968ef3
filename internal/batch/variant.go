package batch

import (
	"fmt"
	"strings"
)

const (
	ColumnISBN   = "ISBN"
	ColumnTitle  = "TITLE"
	ColumnBRN    = "BRN"
	ColumnRetail = "RETAIL"

	FailedFileName = "failed_isbns.xlsx"
)

// Variant fixes which input columns are needed and how the output is named.
type Variant struct {
	Name string
	// Required columns abort the run when missing.
	Required []string
	// Optional columns are added empty when missing.
	Optional []string
	// ResultColumns names the appended rank, price and metadata columns.
	ResultColumns [3]string
	OutputFile    string
}

var (
	Strict = Variant{
		Name:          "strict",
		Required:      []string{ColumnISBN, ColumnTitle, ColumnBRN, ColumnRetail},
		ResultColumns: [3]string{"BSR", "Price", "Publisher"},
		OutputFile:    "output_bsr.xlsx",
	}

	Lenient = Variant{
		Name:          "lenient",
		Required:      []string{ColumnISBN},
		Optional:      []string{ColumnTitle, ColumnBRN, ColumnRetail},
		ResultColumns: [3]string{"BSR", "Amazon Price", "Amazon BRN"},
		OutputFile:    "output_bsr_prices.xlsx",
	}
)

func VariantByName(name string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Strict.Name:
		return Strict, nil
	case Lenient.Name, "":
		return Lenient, nil
	}
	return Variant{}, fmt.Errorf("unknown variant %q", name)
}

// ValidationError means the uploaded sheet cannot be processed at all.
type ValidationError struct {
	Required []string
	Missing  []string
	Reason   string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("spreadsheet must contain the columns %s (missing: %s)",
			strings.Join(e.Required, ", "), strings.Join(e.Missing, ", "))
	}
	return e.Reason
}
