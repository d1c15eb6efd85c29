// Package tracker adapts go-jira to the queries the bot needs: the component directory and
// the issue search used by the analysis pipeline.
package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jira-insights-bot/config"
	"jira-insights-bot/models"

	jira "github.com/andygrunwald/go-jira"
	"github.com/rs/zerolog"
)

const pageSize = 100

type Client struct {
	api     *jira.Client
	baseURL string
	fields  config.FieldMap
	log     zerolog.Logger
}

// NewClient authenticates with the Jira email and API token over basic auth.
func NewClient(cfg config.Config, logger zerolog.Logger) (*Client, error) {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	tp := jira.BasicAuthTransport{
		Username:  cfg.JiraEmail,
		Password:  cfg.JiraAPIToken,
		Transport: http.DefaultTransport,
	}
	httpClient := tp.Client()
	httpClient.Timeout = timeout

	baseURL := strings.TrimRight(cfg.JiraServer, "/")
	api, err := jira.NewClient(httpClient, baseURL)
	if err != nil {
		return nil, fmt.Errorf("jira client for %s: %w", baseURL, err)
	}
	return &Client{
		api:     api,
		baseURL: baseURL,
		fields:  cfg.JiraFields,
		log:     logger.With().Str("component", "tracker").Logger(),
	}, nil
}

// BrowseURL is the human link for an issue key.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// Components lists every component name across all visible projects.
func (c *Client) Components(ctx context.Context) ([]string, error) {
	projects, resp, err := c.api.Project.GetListWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", statusError(resp, err))
	}

	var names []string
	for _, p := range *projects {
		project, resp, err := c.api.Project.GetWithContext(ctx, p.Key)
		if err != nil {
			return nil, fmt.Errorf("list components of %s: %w", p.Key, statusError(resp, err))
		}
		for _, comp := range project.Components {
			if comp.Name != "" {
				names = append(names, comp.Name)
			}
		}
	}
	if len(names) == 0 {
		c.log.Warn().Str("where", "tracker:Components").Int("projects", len(*projects)).Msg("no components found in any project")
	}
	return names, nil
}

// SearchIssues runs jql and returns every matching issue in result order.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]models.Issue, error) {
	opts := &jira.SearchOptions{
		MaxResults: pageSize,
		Fields: []string{
			"summary", "description", "components", "priority",
			c.fields.Customer, c.fields.RootCause, c.fields.Resolution,
		},
	}

	var issues []models.Issue
	err := c.api.Issue.SearchPagesWithContext(ctx, jql, opts, func(issue jira.Issue) error {
		issues = append(issues, c.decodeIssue(issue))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}

	c.log.Debug().Str("where", "tracker:SearchIssues").Str("jql", jql).Int("issues", len(issues)).Msg("search complete")
	return issues, nil
}

// statusError adds the HTTP status to go-jira errors when a response came back.
func statusError(resp *jira.Response, err error) error {
	if resp == nil || resp.Response == nil {
		return err
	}
	return fmt.Errorf("jira api status=%d: %w", resp.StatusCode, err)
}

// ComponentJQL selects open bug-type issues of one component, newest first.
func ComponentJQL(component string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(component)
	return fmt.Sprintf(`type in (Bug, "Production Issue", Defect) AND component = "%s" ORDER BY created DESC`, escaped)
}
