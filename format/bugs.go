package format

import (
	"fmt"
	"strings"

	"jira-insights-bot/models"

	"github.com/slack-go/slack"
)

// Batches renders the bug insights view. An empty result yields no batches; the caller
// owns the "nothing found" message.
func Batches(result models.AnalysisResult) []Batch {
	if result.IsEmpty() {
		return nil
	}
	var blocks []slack.Block
	for _, customer := range result.Customers {
		blocks = append(blocks, header("Analysis for "+customer))
		for _, class := range models.SeverityClasses {
			for _, item := range result.Entries(customer, class) {
				blocks = append(blocks, itemBlocks(item)...)
			}
		}
	}
	return paginate("Analysis Results", blocks)
}

// itemBlocks renders one summary: title and link, details when present, then a divider.
func itemBlocks(item string) []slack.Block {
	title, link, details := splitItem(item)
	blocks := []slack.Block{section(title + "\n" + link)}
	if details = strings.TrimSpace(details); details != "" {
		details = strings.NewReplacer("*Impact:*", "*IMPACT*", "*Fix:*", "*FIX*", "*Test:*", "*TEST*").Replace(details)
		blocks = append(blocks, section(fmt.Sprintf("```%s```", truncate(details, maxSectionText-6))))
	}
	return append(blocks, slack.NewDividerBlock())
}

func splitItem(item string) (title, link, details string) {
	parts := strings.SplitN(item, "\n", 3)
	title = parts[0]
	if len(parts) > 1 {
		link = parts[1]
	}
	if len(parts) > 2 {
		details = parts[2]
	}
	return title, link, details
}
