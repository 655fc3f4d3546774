package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterRuleMatches(t *testing.T) {
	pair := FilterRule{Stop: []string{"Graz Jakominiplatz"}, Line: []string{"4", "5"}}
	lineOnly := FilterRule{Line: []string{"N5"}}

	tests := []struct {
		name  string
		rule  FilterRule
		stop  string
		line  string
		match bool
	}{
		{name: "pair matches stop and line", rule: pair, stop: "Graz Jakominiplatz", line: "5", match: true},
		{name: "pair needs the stop", rule: pair, stop: "Graz Hauptbahnhof", line: "5", match: false},
		{name: "pair needs the line", rule: pair, stop: "Graz Jakominiplatz", line: "6", match: false},
		{name: "line only matches any stop", rule: lineOnly, stop: "Graz Hauptbahnhof", line: "N5", match: true},
		{name: "line only needs the line", rule: lineOnly, stop: "Graz Hauptbahnhof", line: "5", match: false},
		{name: "membership is exact", rule: lineOnly, stop: "Graz Hauptbahnhof", line: "N", match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.match, tt.rule.Matches(tt.stop, tt.line))
		})
	}
}
