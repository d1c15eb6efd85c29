// Package format renders analysis results as Slack block batches and CSV exports.
package format

import (
	"fmt"

	"github.com/slack-go/slack"
)

// MaxBlocks caps the content blocks of one message batch.
const MaxBlocks = 45

const (
	maxHeaderText  = 150
	maxSectionText = 2900
)

// Batch is one message worth of blocks: the part header, a slice of content and, on the
// final batch only, the completion marker.
type Batch struct {
	Index  int
	Total  int
	Blocks []slack.Block
}

func (b Batch) Final() bool {
	return b.Index == b.Total
}

// CompletionMarker closes the final batch of a result.
func CompletionMarker() slack.Block {
	return section(":white_check_mark: Analysis complete!")
}

// paginate chunks content so that every batch, header and marker included, stays within
// MaxBlocks with one block to spare for an action row the caller may attach.
func paginate(title string, content []slack.Block) []Batch {
	if len(content) == 0 {
		return nil
	}
	const per = MaxBlocks - 3
	total := (len(content) + per - 1) / per
	batches := make([]Batch, 0, total)
	for i := 0; i < len(content); i += per {
		n := len(batches) + 1
		blocks := make([]slack.Block, 0, MaxBlocks)
		blocks = append(blocks, header(fmt.Sprintf(":bar_chart: %s (Part %d/%d)", title, n, total)))
		blocks = append(blocks, content[i:min(i+per, len(content))]...)
		if n == total {
			blocks = append(blocks, CompletionMarker())
		}
		batches = append(batches, Batch{Index: n, Total: total, Blocks: blocks})
	}
	return batches
}

func header(text string) slack.Block {
	return slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, truncate(text, maxHeaderText), true, false))
}

func section(text string) slack.Block {
	return slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, truncate(text, maxSectionText), false, false), nil, nil)
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
