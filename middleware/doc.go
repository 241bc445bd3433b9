// Package middleware maps inbound HTTP bearer tokens onto the session
// guard. It is intentionally framework-free: a func(http.Handler)
// http.Handler composes with net/http and every router built on it.
package middleware
