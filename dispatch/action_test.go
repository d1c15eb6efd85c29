package dispatch

import (
	"testing"

	"jira-insights-bot/models"

	"github.com/stretchr/testify/assert"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		id, value string
		want      Action
	}{
		{"select_component_Job Scheduler", "", Action{Kind: ActionSelectComponent, Component: "Job Scheduler", Platform: models.PlatformBoth}},
		{"view_impact_Maps (Core)", "web", Action{Kind: ActionViewImpact, Component: "Maps (Core)", Platform: models.PlatformWeb}},
		{"view_bugs_snake_case_name", "", Action{Kind: ActionViewBugs, Component: "snake_case_name", Platform: models.PlatformBoth}},
		{"download_bugs_Maps", "mobile", Action{Kind: ActionDownloadBugs, Component: "Maps", Platform: models.PlatformMobile}},
		{"download_Maps", "", Action{Kind: ActionDownloadImpact, Component: "Maps", Platform: models.PlatformBoth}},
		{"analyze_mobile_Maps (Core)", "", Action{Kind: ActionSelectPlatform, Component: "Maps (Core)", Platform: models.PlatformMobile}},
		{"analyze_tablet_Maps", "", Action{}},
		{"view_timeline_Maps", "", Action{}},
		{"view_impact_", "", Action{}},
		{"select_component_", "", Action{}},
		{"something_else", "", Action{}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAction(tt.id, tt.value))
		})
	}
}

func TestActionRoundTrip(t *testing.T) {
	for _, a := range []Action{
		{Kind: ActionSelectComponent, Component: "Job Scheduler", Platform: models.PlatformBoth},
		{Kind: ActionSelectPlatform, Component: "Maps", Platform: models.PlatformWeb},
		{Kind: ActionViewImpact, Component: "Maps", Platform: models.PlatformMobile},
		{Kind: ActionViewBugs, Component: "Billing", Platform: models.PlatformBoth},
		{Kind: ActionDownloadImpact, Component: "Billing", Platform: models.PlatformBoth},
		{Kind: ActionDownloadBugs, Component: "bugs_of_billing", Platform: models.PlatformBoth},
	} {
		assert.Equal(t, a, ParseAction(a.ID(), a.Value()), a.ID())
	}
}

func TestActionView(t *testing.T) {
	assert.Equal(t, "impact", Action{Kind: ActionDownloadImpact}.View())
	assert.Equal(t, "bugs", Action{Kind: ActionViewBugs}.View())
	assert.Equal(t, "", Action{Kind: ActionSelectComponent}.View())
	assert.Equal(t, "", Action{}.ID())
}
