// Package resilience provides the client-side guards used by the default
// transport: a circuit breaker that fails fast while a remote side is
// unhealthy, and a token bucket rate limiter. Neither retries anything;
// retry policy belongs to the caller.
package resilience
