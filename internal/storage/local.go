package storage

import (
	"fmt"
	"net/url"
	"time"
)

// LocalProvider fakes presigning for development and tests: the "signed"
// URL points at a local upload endpoint with the expiry encoded as a query
// parameter. Nothing verifies the signature; do not use outside dev.
type LocalProvider struct {
	baseURL string
}

func NewLocalProvider(baseURL string) *LocalProvider {
	return &LocalProvider{baseURL: baseURL}
}

func (p *LocalProvider) PresignPut(key, contentType string, ttl time.Duration) (string, error) {
	return p.sign("put", key, ttl), nil
}

func (p *LocalProvider) PresignGet(key string, ttl time.Duration) (string, error) {
	return p.sign("get", key, ttl), nil
}

func (p *LocalProvider) sign(op, key string, ttl time.Duration) string {
	expires := time.Now().Add(ttl).Unix()
	return fmt.Sprintf("%s/dev-objects/%s?op=%s&expires=%d",
		p.baseURL, url.PathEscape(key), op, expires)
}
