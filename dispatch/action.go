package dispatch

import (
	"strings"

	"jira-insights-bot/models"
)

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionSelectComponent
	ActionSelectPlatform
	ActionViewImpact
	ActionViewBugs
	ActionDownloadImpact
	ActionDownloadBugs
)

const (
	prefixSelect       = "select_component_"
	prefixAnalyze      = "analyze_"
	prefixView         = "view_"
	prefixDownloadBugs = "download_bugs_"
	prefixDownload     = "download_"
)

// Action is a decoded button press. Component and Platform are filled depending on Kind.
type Action struct {
	Kind      ActionKind
	Component string
	Platform  models.Platform
}

// ParseAction decodes a block action id. value carries the platform chosen earlier in the
// flow, if any.
func ParseAction(actionID, value string) Action {
	platform := models.PlatformBoth
	if p, ok := models.ParsePlatform(value); ok {
		platform = p
	}

	switch {
	case strings.HasPrefix(actionID, prefixSelect):
		return namedAction(ActionSelectComponent, strings.TrimPrefix(actionID, prefixSelect), platform)

	case strings.HasPrefix(actionID, prefixAnalyze):
		raw, component, ok := strings.Cut(strings.TrimPrefix(actionID, prefixAnalyze), "_")
		p, valid := models.ParsePlatform(raw)
		if !ok || !valid {
			return Action{}
		}
		return namedAction(ActionSelectPlatform, component, p)

	case strings.HasPrefix(actionID, prefixView):
		view, component, ok := strings.Cut(strings.TrimPrefix(actionID, prefixView), "_")
		if !ok {
			return Action{}
		}
		switch view {
		case "impact":
			return namedAction(ActionViewImpact, component, platform)
		case "bugs":
			return namedAction(ActionViewBugs, component, platform)
		}
		return Action{}

	// download_bugs_ is checked first since download_ is its prefix
	case strings.HasPrefix(actionID, prefixDownloadBugs):
		return namedAction(ActionDownloadBugs, strings.TrimPrefix(actionID, prefixDownloadBugs), platform)

	case strings.HasPrefix(actionID, prefixDownload):
		return namedAction(ActionDownloadImpact, strings.TrimPrefix(actionID, prefixDownload), platform)
	}
	return Action{}
}

func namedAction(kind ActionKind, component string, platform models.Platform) Action {
	if component == "" {
		return Action{}
	}
	return Action{Kind: kind, Component: component, Platform: platform}
}

// ID encodes the action back into a block action id.
func (a Action) ID() string {
	switch a.Kind {
	case ActionSelectComponent:
		return prefixSelect + a.Component
	case ActionSelectPlatform:
		return prefixAnalyze + string(a.Platform) + "_" + a.Component
	case ActionViewImpact:
		return prefixView + "impact_" + a.Component
	case ActionViewBugs:
		return prefixView + "bugs_" + a.Component
	case ActionDownloadImpact:
		return prefixDownload + a.Component
	case ActionDownloadBugs:
		return prefixDownloadBugs + a.Component
	}
	return ""
}

// Value is the button value carrying the platform forward.
func (a Action) Value() string {
	if a.Platform == "" {
		return string(models.PlatformBoth)
	}
	return string(a.Platform)
}

// View names the result view an action leads to, for logs and metrics.
func (a Action) View() string {
	switch a.Kind {
	case ActionViewImpact, ActionDownloadImpact:
		return "impact"
	case ActionViewBugs, ActionDownloadBugs:
		return "bugs"
	}
	return ""
}

func (a Action) download() bool {
	return a.Kind == ActionDownloadImpact || a.Kind == ActionDownloadBugs
}
