package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jira-insights-bot/models"

	"github.com/rs/zerolog"
)

type Issue = models.Issue

// Section labels as they appear in a finished summary.
const (
	ImpactLabel = "*Impact:*"
	FixLabel    = "*Fix:*"
	TestLabel   = "*Test:*"
)

type Summarizer struct {
	llm     LLM
	timeout time.Duration
	log     zerolog.Logger
}

func NewSummarizer(llm LLM, timeout time.Duration, logger zerolog.Logger) *Summarizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Summarizer{
		llm:     llm,
		timeout: timeout,
		log:     logger.With().Str("component", "summarize").Logger(),
	}
}

// Summarize returns the rendered summary for issue. When the model fails the title-only
// summary is returned together with the error so the caller can keep the issue.
func (s *Summarizer) Summarize(ctx context.Context, issue Issue) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.llm.Complete(callCtx, BuildPrompt(issue))
	if err != nil {
		s.log.Warn().Err(err).Str("where", "summarize:Summarize").Str("issue", issue.Key).Msg("falling back to title-only summary")
		return TitleOnly(issue), err
	}
	body := FormatSections(out)
	if body == "" {
		return TitleOnly(issue), fmt.Errorf("empty summary for %s", issue.Key)
	}
	return TitleOnly(issue) + body + "\n", nil
}

func BuildPrompt(issue Issue) string {
	var b strings.Builder
	b.WriteString("Provide a bug summary with each section on a new line in format:\n")
	b.WriteString("Impact: [customer impact]\n")
	b.WriteString("Fix: [solution]\n")
	b.WriteString("Test: [key test scenario]\n\n")
	b.WriteString("Bug info:\n")
	fmt.Fprintf(&b, "Summary: %s\n", issue.Summary)
	fmt.Fprintf(&b, "Description: %s\n", issue.Description)
	fmt.Fprintf(&b, "Root Cause: %s\n", issue.RootCause)
	fmt.Fprintf(&b, "Resolution: %s\n", issue.Resolution)
	return b.String()
}

// TitleOnly renders the class marker, title and tracker link. It ends with a newline.
func TitleOnly(issue Issue) string {
	title := fmt.Sprintf("*%s*\n<%s|View in Jira>", issue.Summary, issue.URL)
	if class := models.ClassFromPriority(issue.Priority); class != models.ClassUnknown {
		title = fmt.Sprintf("%s *%s* | %s", class.Glyph(), class, title)
	}
	return title + "\n"
}

// FormatSections puts each labelled section of the model output on its own line with a
// bold label.
func FormatSections(out string) string {
	text := cleanOutput(out)
	for _, label := range []string{"Impact", "Fix", "Test"} {
		text = strings.ReplaceAll(text, "**"+label+":**", label+":")
		text = strings.ReplaceAll(text, label+":", "\n*"+label+":*")
	}
	return text
}

// cleanOutput trims whitespace and any code fence the model wrapped its answer in.
func cleanOutput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```text")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}

// Sections splits a finished summary into its Impact, Fix and Test text.
func Sections(summary string) (impact, fix, test string) {
	return between(summary, ImpactLabel, FixLabel, TestLabel),
		between(summary, FixLabel, TestLabel),
		between(summary, TestLabel)
}

// between returns the text after start, cut at the first of the end labels.
func between(s, start string, ends ...string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	for _, end := range ends {
		if j := strings.Index(s, end); j >= 0 {
			s = s[:j]
		}
	}
	return strings.TrimSpace(s)
}
