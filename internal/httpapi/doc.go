// Package httpapi is the HTTP adapter over *tokenauth.Engine used by
// cmd/authd.
//
// Routes:
//
//	GET  /                    server info
//	GET  /healthz             session store health
//	GET  /metrics             when a metrics handler is configured
//	GET  /v1/ping
//	POST /v1/auth/login       {email, password}; sets the refresh cookie
//	POST /v1/auth/refresh     rotates the refresh cookie
//	POST /v1/auth/logout      always 200; clears the refresh cookie
//	POST /v1/auth/logout-all  bearer access token required
//	GET  /v1/auth/me          bearer access token required
//
// Errors are JSON {"error": message, "code": CODE}. Expected auth failures
// map to 400/401; anything else is 500 INTERNAL_ERROR with a generic message.
package httpapi
