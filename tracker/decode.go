package tracker

import (
	"encoding/json"
	"fmt"
	"strings"

	"jira-insights-bot/models"

	jira "github.com/andygrunwald/go-jira"
)

// decodeIssue maps a go-jira issue onto the bot's Issue. Custom fields arrive in
// Fields.Unknowns as decoded JSON.
func (c *Client) decodeIssue(raw jira.Issue) models.Issue {
	issue := models.Issue{
		Key: raw.Key,
		URL: c.BrowseURL(raw.Key),
	}
	f := raw.Fields
	if f == nil {
		return issue
	}

	issue.Summary = f.Summary
	issue.Description = f.Description
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	for _, comp := range f.Components {
		if comp != nil {
			issue.Components = append(issue.Components, comp.Name)
		}
	}
	issue.RootCause = textField(f.Unknowns[c.fields.RootCause])
	issue.Resolution = textField(f.Unknowns[c.fields.Resolution])
	issue.Customer = firstOption(f.Unknowns[c.fields.Customer])
	return issue
}

// textField accepts plain strings and falls back to JSON for rich values.
func textField(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	if s := optionValue(v); s != "" {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// optionValue reads {"value": ...} or {"name": ...} objects and bare strings.
func optionValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		for _, key := range []string{"value", "name"} {
			if inner, ok := t[key]; ok && inner != nil {
				return strings.TrimSpace(fmt.Sprint(inner))
			}
		}
	}
	return ""
}

// firstOption handles customer fields configured either as a multi-select or a single select.
func firstOption(v any) string {
	if list, ok := v.([]any); ok {
		for _, item := range list {
			if s := optionValue(item); s != "" {
				return s
			}
		}
		return ""
	}
	return optionValue(v)
}
