package format

import (
	"strconv"
	"strings"
	"time"

	"jira-insights-bot/models"
	"jira-insights-bot/summarize"
)

// File is a generated export ready for upload.
type File struct {
	Name    string
	Title   string
	Comment string
	Content string
}

const timestampLayout = "2006-01-02_15-04-05"

// BugsCSV exports one row per summarized bug.
func BugsCSV(component string, result models.AnalysisResult, now time.Time) File {
	var b strings.Builder
	b.WriteString(`"Number","Component","Customer","Priority","Impact","Fix","Test"` + "\n")

	row := 1
	for _, customer := range result.Customers {
		for _, class := range models.SeverityClasses {
			for _, item := range result.Entries(customer, class) {
				impact, fix, test := summarize.Sections(item)
				writeRow(&b, strconv.Itoa(row), component, customer, class.String(), impact, fix, test)
				row++
			}
		}
	}

	return File{
		Name:    "customer_bugs_" + fileSafe(component) + "_" + now.Format(timestampLayout) + ".csv",
		Title:   "Customer Bugs - " + component,
		Comment: "📥 Here's your customer bugs CSV export for " + component,
		Content: b.String(),
	}
}

// ImpactCSV exports the distinct impact clauses in first-seen order.
func ImpactCSV(component string, result models.AnalysisResult, now time.Time) File {
	var b strings.Builder
	b.WriteString(`"Number","Component","Impact Summary"` + "\n")

	seen := map[string]bool{}
	row := 1
	for _, customer := range result.Customers {
		for _, class := range models.SeverityClasses {
			for _, item := range result.Entries(customer, class) {
				impact := ExtractImpact(item)
				if impact == "" || seen[impact] {
					continue
				}
				seen[impact] = true
				writeRow(&b, strconv.Itoa(row), component, impact)
				row++
			}
		}
	}

	return File{
		Name:    "impact_areas_" + fileSafe(component) + "_" + now.Format(timestampLayout) + ".csv",
		Title:   "Impact Areas - " + component,
		Comment: "📥 Here's your CSV export for " + component,
		Content: b.String(),
	}
}

// writeRow writes the row number bare and quotes every other field.
func writeRow(b *strings.Builder, number string, fields ...string) {
	b.WriteString(number)
	for _, f := range fields {
		b.WriteString(`,"`)
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteString(`"`)
	}
	b.WriteString("\n")
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t', ':':
			return '_'
		}
		return r
	}, s)
}
