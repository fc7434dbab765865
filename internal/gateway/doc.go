// Package gateway issues outbound provider requests with classified failure
// handling.
//
// Every call flows through one explicit retry loop: each response is
// classified as success, rate-limited, client error, server error, transport
// error, or parse error, and each failure kind maps to a deterministic
// backoff before the next attempt. Client-side rate limiting, transport
// circuit breaking, and response caching all live inside the gateway so
// provider adapters stay thin. Terminal failures surface as *RequestError
// values carrying the provider, endpoint, classification, and attempt count
// of the final try.
package gateway
