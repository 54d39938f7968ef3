package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFailureRank(t *testing.T) {
	tests := []struct {
		rank     string
		expected bool
	}{
		{NotFound, true},
		{NoLink, true},
		{Error, true},
		{NoPrice, false},
		{NoBRN, false},
		{"Best Sellers Rank: #1,234 in Books", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.rank, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFailureRank(tt.rank))
		})
	}
}

func TestTransportFaultIsUniform(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	r := TransportFault("123", cause)

	assert.Equal(t, Error, r.Rank)
	assert.Equal(t, Error, r.Price)
	assert.Equal(t, Error, r.Metadata)
	assert.Equal(t, OutcomeTransportFault, r.Outcome)
	assert.ErrorIs(t, r.Err, cause)
	assert.True(t, r.Failed())
}

func TestNoCandidateIsUniform(t *testing.T) {
	r := NoCandidate("123")

	assert.Equal(t, NoLink, r.Rank)
	assert.Equal(t, NoPrice, r.Price)
	assert.Equal(t, NoBRN, r.Metadata)
	assert.Equal(t, OutcomeNoCandidate, r.Outcome)
	assert.True(t, r.Failed())
}

func TestFailedIdentifiers(t *testing.T) {
	run := &RunResult{Failed: []InputRow{{Identifier: "a"}, {Identifier: "c"}}}
	assert.Equal(t, []string{"a", "c"}, run.FailedIdentifiers())
}
