package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"jira-insights-bot/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

// Installer records OAuth installations.
type Installer interface {
	Save(ctx context.Context, userID, teamID string) (bool, error)
}

// Exchanger trades an OAuth code for the installing user and team.
type Exchanger func(ctx context.Context, code string) (userID, teamID string, err error)

// SlackExchanger exchanges codes against Slack's oauth.v2.access.
func SlackExchanger(clientID, clientSecret, redirectURI string) Exchanger {
	return func(ctx context.Context, code string) (string, string, error) {
		oauthResponse, oauthExchangeError := slack.GetOAuthV2ResponseContext(ctx, http.DefaultClient, clientID, clientSecret, code, redirectURI)
		if oauthExchangeError != nil {
			return "", "", oauthExchangeError
		}
		return oauthResponse.AuthedUser.ID, oauthResponse.Team.ID, nil
	}
}

type ServerOptions struct {
	SigningSecret string
	Metrics       *metrics.Metrics
	// Installs and Exchange enable the OAuth callback when both are set.
	Installs Installer
	Exchange Exchanger
}

// Server is the HTTP front of the bot. Slack always gets a quick 200, whatever happens
// to the request afterwards, so it does not redeliver.
type Server struct {
	d    *Dispatcher
	opts ServerOptions
	log  zerolog.Logger
}

func NewServer(d *Dispatcher, opts ServerOptions, logger zerolog.Logger) *Server {
	return &Server{d: d, opts: opts, log: logger.With().Str("component", "http").Logger()}
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), s.requestLog())

	g.GET("/", s.health)
	g.POST("/", s.events)
	g.POST("/slack/events", s.events)
	g.POST("/slack/interactions", s.interactions)
	g.GET("/slack/oauth/callback", s.oauthCallback)
	g.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	return g
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.String(http.StatusOK, "Service running")
}

var errBadSignature = errors.New("bad request signature")

// body reads the raw request and checks the Slack signature when a secret is configured.
func (s *Server) body(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	if s.opts.SigningSecret == "" {
		return body, nil
	}
	sv, err := slack.NewSecretsVerifier(c.Request.Header, s.opts.SigningSecret)
	if err != nil {
		return nil, errors.Join(errBadSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return nil, err
	}
	if err := sv.Ensure(); err != nil {
		return nil, errors.Join(errBadSignature, err)
	}
	return body, nil
}

func (s *Server) reject(c *gin.Context, where string, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errBadSignature) {
		s.log.Warn().Err(err).Str("where", where).Msg("rejected unsigned request")
		c.Status(http.StatusUnauthorized)
		return true
	}
	s.log.Error().Err(err).Str("where", where).Msg("unreadable request")
	c.Status(http.StatusOK)
	return true
}

func (s *Server) events(c *gin.Context) {
	body, err := s.body(c)
	if s.reject(c, "http:events", err) {
		return
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		s.log.Error().Err(err).Str("where", "http:events").Msg("unparseable event")
		c.Status(http.StatusOK)
		return
	}

	switch ev.Type {
	case slackevents.URLVerification:
		var r slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			s.log.Error().Err(err).Str("where", "http:events").Msg("bad url_verification body")
			c.Status(http.StatusOK)
			return
		}
		c.JSON(http.StatusOK, gin.H{"challenge": r.Challenge})
	case slackevents.CallbackEvent:
		s.d.HandleEvent(c.Request.Context(), ev)
		c.Status(http.StatusOK)
	default:
		c.Status(http.StatusOK)
	}
}

func (s *Server) interactions(c *gin.Context) {
	body, err := s.body(c)
	if s.reject(c, "http:interactions", err) {
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("payload") == "" {
		s.log.Error().Err(err).Str("where", "http:interactions").Msg("missing payload")
		c.Status(http.StatusOK)
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		s.log.Error().Err(err).Str("where", "http:interactions").Msg("unparseable payload")
		c.Status(http.StatusOK)
		return
	}

	s.d.HandleInteraction(c.Request.Context(), cb)
	c.Status(http.StatusOK)
}

func (s *Server) oauthCallback(c *gin.Context) {
	if s.opts.Installs == nil || s.opts.Exchange == nil {
		c.String(http.StatusNotFound, "OAuth install is not configured")
		return
	}
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "Missing code")
		return
	}

	// Trade the temporary code for the installing user
	userID, teamID, codeExchangeError := s.opts.Exchange(c.Request.Context(), code)
	if codeExchangeError != nil {
		s.log.Error().Err(codeExchangeError).Str("where", "http:oauthCallback").Msg("code exchange failed")
		c.String(http.StatusInternalServerError, "Failed to authenticate with Slack")
		return
	}

	// Save the user; a repeat install leaves the existing row alone
	created, saveInstallationError := s.opts.Installs.Save(c.Request.Context(), userID, teamID)
	if saveInstallationError != nil {
		s.log.Error().Err(saveInstallationError).Str("where", "http:oauthCallback").Str("user", userID).Msg("installation save failed")
		c.String(http.StatusInternalServerError, "Failed to save installation")
		return
	}

	if !created {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>Already Registered!</h1><p>Jira Insights is already active for your account.</p>"))
		return
	}
	s.log.Info().Str("where", "http:oauthCallback").Str("user", userID).Str("team", teamID).Msg("installed")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<h1>Success!</h1><p>Jira Insights is now active for your account.</p>"))
}
