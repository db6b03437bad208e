package constants

// Static route constants
const (
	PublicRoute = "/"
	LoginRoute  = "/login"
	// API docs are served by the swagger middleware under this base path
	DocsAPIRoute = "/docs/api/"
)
