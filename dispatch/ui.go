package dispatch

import (
	"fmt"
	"strings"

	"jira-insights-bot/models"

	"github.com/slack-go/slack"
)

// Slack allows 25 elements per actions block.
const buttonsPerBlock = 25

// maxChoices bounds the buttons in one selection message.
const maxChoices = 100

func markdown(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func plain(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, true, false)
}

func button(a Action, label string, style slack.Style) *slack.ButtonBlockElement {
	b := slack.NewButtonBlockElement(a.ID(), a.Value(), plain(label))
	if style != "" {
		b.Style = style
	}
	return b
}

func actionBlocks(buttons []*slack.ButtonBlockElement) []slack.Block {
	var blocks []slack.Block
	for i := 0; i < len(buttons); i += buttonsPerBlock {
		elems := make([]slack.BlockElement, 0, buttonsPerBlock)
		for _, b := range buttons[i:min(i+buttonsPerBlock, len(buttons))] {
			elems = append(elems, b)
		}
		blocks = append(blocks, slack.NewActionBlock("", elems...))
	}
	return blocks
}

// componentChoice lists matched components as buttons.
func componentChoice(query string, matches []string) (string, []slack.Block) {
	text := fmt.Sprintf("🔍 Found %d component(s) matching *%s*. Pick one:", len(matches), query)
	if len(matches) > maxChoices {
		text = fmt.Sprintf("🔍 Found %d components matching *%s*, showing the first %d. Pick one or refine your search:", len(matches), query, maxChoices)
		matches = matches[:maxChoices]
	}
	buttons := make([]*slack.ButtonBlockElement, 0, len(matches))
	for _, name := range matches {
		buttons = append(buttons, button(Action{Kind: ActionSelectComponent, Component: name}, name, ""))
	}
	blocks := []slack.Block{slack.NewSectionBlock(markdown(text), nil, nil)}
	return text, append(blocks, actionBlocks(buttons)...)
}

// platformChoice asks which platform a maps component should be analyzed for.
func platformChoice(component string) (string, []slack.Block) {
	text := fmt.Sprintf("🗺️ *%s*: which platform?", component)
	var buttons []*slack.ButtonBlockElement
	for _, p := range []struct {
		platform models.Platform
		label    string
	}{
		{models.PlatformWeb, "🌐 Web"},
		{models.PlatformMobile, "📱 Mobile"},
		{models.PlatformBoth, "🔀 Both"},
	} {
		buttons = append(buttons, button(Action{Kind: ActionSelectPlatform, Component: component, Platform: p.platform}, p.label, ""))
	}
	blocks := []slack.Block{slack.NewSectionBlock(markdown(text), nil, nil)}
	return text, append(blocks, actionBlocks(buttons)...)
}

// viewChoice offers the two result views for component.
func viewChoice(component string, platform models.Platform) (string, []slack.Block) {
	text := fmt.Sprintf("📂 *%s*: what would you like to see?", component)
	if platform != "" && platform != models.PlatformBoth {
		text = fmt.Sprintf("📂 *%s* (%s): what would you like to see?", component, platform)
	}
	buttons := []*slack.ButtonBlockElement{
		button(Action{Kind: ActionViewImpact, Component: component, Platform: platform}, "🎯 Key Impacts", slack.StylePrimary),
		button(Action{Kind: ActionViewBugs, Component: component, Platform: platform}, "🐞 Bug Insights", ""),
	}
	blocks := []slack.Block{slack.NewSectionBlock(markdown(text), nil, nil)}
	return text, append(blocks, actionBlocks(buttons)...)
}

// downloadBlock is attached after the final result batch.
func downloadBlock(view Action) slack.Block {
	kind := ActionDownloadImpact
	label := "📥 Download Impacts CSV"
	if view.Kind == ActionViewBugs {
		kind = ActionDownloadBugs
		label = "📥 Download Bugs CSV"
	}
	a := Action{Kind: kind, Component: view.Component, Platform: view.Platform}
	return slack.NewActionBlock("", button(a, label, ""))
}

// componentList renders known components as a bulleted list.
func componentList(names []string) string {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("• ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return truncate(b.String(), 2800)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// homeView is the App Home tab.
func homeView(names []string) []slack.Block {
	blocks := []slack.Block{
		slack.NewHeaderBlock(plain("Jira Insights")),
		slack.NewSectionBlock(markdown(
			"Mention me with a component name, or send it in a DM:\n"+
				"> `@Jira Insights maps`\n"+
				"I'll find the matching components, then show *Key Impacts* or *Bug Insights* "+
				"grouped by customer and severity, with a CSV download."), nil, nil),
		slack.NewDividerBlock(),
	}
	if len(names) == 0 {
		return append(blocks, slack.NewSectionBlock(markdown("_No components loaded from Jira yet._"), nil, nil))
	}
	return append(blocks, slack.NewSectionBlock(markdown(fmt.Sprintf("*Known components (%d)*\n%s", len(names), componentList(names))), nil, nil))
}
