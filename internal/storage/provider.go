package storage

import "time"

// Provider signs time-boxed, object-scoped URLs. The service decides key
// namespace and TTL; providers only sign.
type Provider interface {
	// PresignPut returns a URL the client can PUT the object bytes to.
	PresignPut(key, contentType string, ttl time.Duration) (string, error)
	// PresignGet returns a URL the client can read the object from.
	PresignGet(key string, ttl time.Duration) (string, error)
}
