package format

import (
	"fmt"
	"sort"

	"jira-insights-bot/models"
	"jira-insights-bot/summarize"

	"github.com/slack-go/slack"
)

// GroupKey names the group a severity class is listed under. Classes sharing a key are
// merged into one list.
type GroupKey func(models.SeverityClass) string

// Flat lists every impact in a single group.
func Flat(models.SeverityClass) string { return "" }

// ByClass lists impacts per severity class.
func ByClass(c models.SeverityClass) string { return c.Glyph() + " " + c.String() }

type ImpactGroup struct {
	Title   string
	Impacts []string
}

// ExtractImpact returns the Impact clause of a summary, or "".
func ExtractImpact(summary string) string {
	impact, _, _ := summarize.Sections(summary)
	return impact
}

// Impacts collects the distinct impact clauses per group, shortest first.
func Impacts(result models.AnalysisResult, key GroupKey) []ImpactGroup {
	var groups []ImpactGroup
	index := map[string]int{}
	seen := map[string]map[string]bool{}

	for _, class := range models.SeverityClasses {
		k := key(class)
		for _, customer := range result.Customers {
			for _, item := range result.Entries(customer, class) {
				impact := ExtractImpact(item)
				if impact == "" || seen[k][impact] {
					continue
				}
				i, ok := index[k]
				if !ok {
					i = len(groups)
					index[k] = i
					groups = append(groups, ImpactGroup{Title: k})
					seen[k] = map[string]bool{}
				}
				seen[k][impact] = true
				groups[i].Impacts = append(groups[i].Impacts, impact)
			}
		}
	}

	for _, g := range groups {
		sort.SliceStable(g.Impacts, func(a, b int) bool {
			return len(g.Impacts[a]) < len(g.Impacts[b])
		})
	}
	return groups
}

// ImpactBatches renders the key impacts view as numbered lists, one list per group.
func ImpactBatches(component string, result models.AnalysisResult, key GroupKey) []Batch {
	groups := Impacts(result, key)
	if len(groups) == 0 {
		return nil
	}

	blocks := []slack.Block{header("Key Impacts for " + component)}
	for _, g := range groups {
		if g.Title != "" {
			blocks = append(blocks, section("*"+g.Title+"*"))
		}
		for n, impact := range g.Impacts {
			blocks = append(blocks, section(fmt.Sprintf("%d. %s", n+1, impact)))
		}
		blocks = append(blocks, slack.NewDividerBlock())
	}
	return paginate("Key Impacts", blocks)
}
