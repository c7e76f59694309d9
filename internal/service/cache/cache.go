package cache

import "time"

// BytesCache stores serialized explanation payloads keyed by request
// digest, with per-entry TTL.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
