package common

// AuthorizationHeader carries the bearer token on inbound requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix is the scheme prefix expected in AuthorizationHeader.
const BearerPrefix = "Bearer "

// RequestIDHeader echoes the per-request correlation id to clients.
const RequestIDHeader = "X-Request-ID"
