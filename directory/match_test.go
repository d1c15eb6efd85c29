package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	candidates := []string{"Job Scheduler", "Maps (Core)", "Mobile App", "Billing"}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"prefix of a word", "sched", []string{"Job Scheduler"}},
		{"case insensitive", "JOB", []string{"Job Scheduler"}},
		{"word longer than candidate word", "billings", []string{"Billing"}},
		{"whole candidate inside query word", "xbillingx", []string{"Billing"}},
		{"any word matches", "maps mobile", []string{"Maps (Core)", "Mobile App"}},
		{"substring of full text", "(core)", []string{"Maps (Core)"}},
		{"no match", "payroll", nil},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.query, candidates))
		})
	}
}

func TestMatchSortsResults(t *testing.T) {
	got := Match("a", []string{"zeta app", "Alpha", "beta app"})
	assert.Equal(t, []string{"Alpha", "beta app", "zeta app"}, got)
}
