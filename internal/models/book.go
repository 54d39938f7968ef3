package models

// Sentinel values written into result fields in place of extracted text.
const (
	NotFound = "Not found"
	NoLink   = "No link"
	NoPrice  = "No price"
	NoBRN    = "No BRN"
	Error    = "Error"
)

// Outcome classifies how a lookup ended.
type Outcome string

const (
	OutcomeFound          Outcome = "found"
	OutcomeExtractionMiss Outcome = "extraction_miss"
	OutcomeNoCandidate    Outcome = "no_candidate"
	OutcomeTransportFault Outcome = "transport_fault"
)

// InputRow is one data row of the uploaded spreadsheet.
type InputRow struct {
	Identifier    string
	Title         string
	AuxiliaryCode string
	ListPrice     string
	// Cells holds the original row values aligned with the table header.
	Cells []string
}

// LookupResult is the outcome of a single identifier lookup. Rank, Price and
// Metadata always hold either extracted text or one of the sentinel values.
type LookupResult struct {
	Identifier string  `json:"identifier"`
	Rank       string  `json:"rank"`
	Price      string  `json:"price"`
	Metadata   string  `json:"metadata"`
	Outcome    Outcome `json:"outcome"`
	Err        error   `json:"-"`
}

// TransportFault is the uniform result for a failed fetch on either step.
func TransportFault(identifier string, err error) LookupResult {
	return LookupResult{
		Identifier: identifier,
		Rank:       Error,
		Price:      Error,
		Metadata:   Error,
		Outcome:    OutcomeTransportFault,
		Err:        err,
	}
}

// NoCandidate is the uniform result for a search page without a result link.
func NoCandidate(identifier string) LookupResult {
	return LookupResult{
		Identifier: identifier,
		Rank:       NoLink,
		Price:      NoPrice,
		Metadata:   NoBRN,
		Outcome:    OutcomeNoCandidate,
	}
}

// IsFailureRank reports whether a rank field marks the row as failed.
func IsFailureRank(rank string) bool {
	switch rank {
	case NotFound, NoLink, Error:
		return true
	}
	return false
}

func (r LookupResult) Failed() bool {
	return IsFailureRank(r.Rank)
}

// RunResult holds results aligned 1:1 with the input rows and the rows whose
// lookup failed, in input order.
type RunResult struct {
	Results []LookupResult
	Failed  []InputRow
}

func (r *RunResult) FailedIdentifiers() []string {
	ids := make([]string, len(r.Failed))
	for i, row := range r.Failed {
		ids[i] = row.Identifier
	}
	return ids
}
