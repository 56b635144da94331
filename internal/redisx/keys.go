package redisx

import "time"

const (
	// Cart of one session: cart:{session_id} -> JSON list of items
	KeyCart = "cart:%s"

	// Dedup of push events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCart  = 30 * 24 * time.Hour
	TTLDedup = 48 * time.Hour
)
