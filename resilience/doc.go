// Package resilience provides patterns for building fault-tolerant services:
// a token-bucket rate limiter, a circuit breaker, and retry with exponential
// backoff. The gateway uses the limiter per route, and the registry client
// and admin poller use retry and the breaker around remote calls.
package resilience
