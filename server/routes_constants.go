package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Session
	RouteHealth = "/api/health"
	RouteConfig = "/api/config"
	RouteMe     = "/api/me"
	RouteLogout = "/api/logout"

	// DiscourseConnect
	RouteSSOLogin    = "/api/sso/login"
	RouteSSOCallback = "/api/sso/callback"

	// Forum read proxy
	RouteDiscourseLatest = "/api/discourse/latest"
	RouteDiscourseTopic  = "/api/discourse/topic/{id}"
	RouteDiscoursePM     = "/api/discourse/pm/{username}"

	// Seed / context topics
	RouteDiscourseSeed  = "/api/discourse/seed"
	RouteDiscourseSeeds = "/api/discourse/seeds"

	// Forum AI
	RouteAISearch   = "/api/ai/search"
	RouteAIStream   = "/api/ai/stream"
	RouteAIPersonas = "/api/ai/personas"

	// Push
	RouteEvents           = "/api/events"
	RouteWebhookDiscourse = "/api/webhooks/discourse"

	// Records and providers
	RouteTRPC    = "/api/trpc/{procedure}"
	RouteLLMChat = "/api/llm/chat"
)
