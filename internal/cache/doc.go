// Package cache provides the gateway response cache with interchangeable
// in-memory and badger-backed stores, plus the deterministic request key
// derivation shared by all callers.
package cache
