package api

// MaxBodySize bounds raw JSON request bodies.
const MaxBodySize = 64 << 10

// Cache-Control header values.
const (
	CacheNoCache = "no-cache"
	CacheNoStore = "no-store"
)
