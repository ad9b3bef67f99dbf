package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteConfig, ChainMiddleware(s.ConfigHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireCSRF)...))

	// SSO
	s.RegisterRouteHandler("GET "+RouteSSOLogin, ChainMiddleware(s.SSOLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSSOCallback, ChainMiddleware(s.SSOCallbackHandler(), s.APIMiddleware()...))

	// Forum reads
	s.RegisterRouteHandler("GET "+RouteDiscourseLatest, ChainMiddleware(s.LatestHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteDiscourseTopic, ChainMiddleware(s.TopicHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteDiscoursePM, ChainMiddleware(s.PrivateMessagesHandler(), s.APIMiddleware(s.RequireSession)...))

	// Seeds
	s.RegisterRouteHandler("POST "+RouteDiscourseSeed, ChainMiddleware(s.SeedHandler(), s.APIMiddleware(s.RequireSession, s.RequireCSRF)...))
	s.RegisterRouteHandler("GET "+RouteDiscourseSeeds, ChainMiddleware(s.SeedsHandler(), s.APIMiddleware(s.OptionalSession, s.RateLimitAI)...))

	// Forum AI
	s.RegisterRouteHandler("POST "+RouteAISearch, ChainMiddleware(s.AISearchHandler(), s.APIMiddleware(s.OptionalSession, s.RateLimitAI)...))
	s.RegisterRouteHandler("POST "+RouteAIStream, ChainMiddleware(s.AIStreamHandler(), s.APIMiddleware(s.OptionalSession, s.RateLimitAI)...))
	s.RegisterRouteHandler("GET "+RouteAIPersonas, ChainMiddleware(s.AIPersonasHandler(), s.APIMiddleware(s.OptionalSession, s.RateLimitAI)...))

	// Push
	s.RegisterRouteHandler("GET "+RouteEvents, ChainMiddleware(s.EventsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteWebhookDiscourse, ChainMiddleware(s.WebhookHandler(), s.APIMiddleware()...))

	// tRPC: queries are GET, mutations POST and CSRF protected
	s.RegisterRouteHandler("GET "+RouteTRPC, ChainMiddleware(s.trpc.Handler(), s.APIMiddleware(s.RequireTRPCSession)...))
	s.RegisterRouteHandler("POST "+RouteTRPC, ChainMiddleware(s.trpc.Handler(), s.APIMiddleware(s.RequireTRPCSession, s.RequireTRPCCSRF)...))

	// BYOK LLM
	s.RegisterRouteHandler("POST "+RouteLLMChat, ChainMiddleware(s.LLMChatHandler(), s.APIMiddleware(s.RequireSession, s.RequireCSRF, s.RateLimitAI)...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))
}
