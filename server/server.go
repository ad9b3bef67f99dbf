package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/iamcapote/semantic-flow-sub001/discourse"
	"github.com/iamcapote/semantic-flow-sub001/events"
	"github.com/iamcapote/semantic-flow-sub001/internal/config"
	"github.com/iamcapote/semantic-flow-sub001/internal/errors"
	"github.com/iamcapote/semantic-flow-sub001/llm"
	"github.com/iamcapote/semantic-flow-sub001/providers"
	"github.com/iamcapote/semantic-flow-sub001/session"
	"github.com/iamcapote/semantic-flow-sub001/sso"
	"github.com/iamcapote/semantic-flow-sub001/trpc"
	"github.com/iamcapote/semantic-flow-sub001/users"
	"github.com/iamcapote/semantic-flow-sub001/webhook"
	"github.com/iamcapote/semantic-flow-sub001/workflows"
)

// Repos holds the record stores used by the tRPC procedures and the SSO callback
type Repos struct {
	Users     users.Repo
	Workflows workflows.Repo
	Providers providers.Repo
}

// Dependencies are the collaborators a Server is built from. Optional fields
// fall back to defaults when nil.
type Dependencies struct {
	Repos   Repos
	Deduper webhook.Deduper

	HTTPClient   *http.Client        // Forum calls
	Sleep        discourse.SleepFunc // Forum retry backoff
	LLMTransport http.RoundTripper   // Provider calls
}

type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config

	sessions *session.Manager // nil when no secret is configured
	sso      *sso.Provider    // nil when SSO is not configured
	forum    *discourse.Client

	hub       *events.Hub
	deduper   webhook.Deduper
	users     users.Repo
	workflows *workflows.Service
	providers *providers.Service
	llm       *llm.Proxy
	trpc      *trpc.Router
	aiLimiter *clientLimiter
}

func New(config config.Config, deps Dependencies) (*Server, error) {
	if deps.Repos.Users == nil || deps.Repos.Workflows == nil || deps.Repos.Providers == nil {
		return nil, errors.Wrapf(errors.ErrNotConfigured, "[Server New] repositories are required")
	}
	if deps.Deduper == nil {
		deps.Deduper = webhook.NewMemoryDeduper(config.GetWebhookDedupeTTL(), config.GetWebhookDedupeSweepSize())
	}

	s := &Server{
		env:       config.GetEnv(),
		mux:       http.NewServeMux(),
		config:    config,
		hub:       events.NewHub(events.DefaultBuffer),
		deduper:   deps.Deduper,
		users:     deps.Repos.Users,
		workflows: workflows.NewService(deps.Repos.Workflows),
		providers: providers.NewService(deps.Repos.Providers),
		llm:       llm.NewProxy(deps.LLMTransport),
		aiLimiter: newClientLimiter(config.GetAIRateLimitRPM()),
	}

	var err error
	if s.sessions, err = session.NewManager(config.GetSessionSecret(), config.GetSessionTTL()); err != nil {
		log.Warn().Err(err).Msg("sessions disabled")
	}
	if s.sso, err = sso.NewProvider(config.GetDiscourseBaseURL(), config.GetDiscourseSSOSecret()); err != nil {
		log.Warn().Err(err).Msg("sso disabled")
	}
	s.forum, err = discourse.New(discourse.Options{
		BaseURL:     config.GetDiscourseBaseURL(),
		APIKey:      config.GetDiscourseAPIKey(),
		APIUsername: config.GetDiscourseAPIUsername(),
		HTTPClient:  deps.HTTPClient,
		Sleep:       deps.Sleep,
	})
	if err != nil {
		log.Warn().Err(err).Msg("forum proxy disabled")
	}

	s.trpc = s.newTRPCRouter()
	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub exposes the event hub so other producers can broadcast to SSE clients
func (s *Server) Hub() *events.Hub {
	return s.hub
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDevelopment {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
	for _, procedure := range s.trpc.Procedures() {
		logRoute("TRPC", "/api/trpc/"+procedure)
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
