// Package transport defines the wire-level request and response model and
// the CallFactory boundary the rest client hands assembled requests to.
//
// Client is the default CallFactory, built on net/http with optional
// HTTP/2, TLS, authentication, a client-side rate limiter, a circuit
// breaker and an interceptor chain for logging, tracing and metrics.
// Any other transport can be plugged in by implementing CallFactory, and
// RoundTripFunc turns a plain function into one.
package transport
