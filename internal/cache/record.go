package cache

import (
	"time"

	"github.com/roach88/uuidlens/internal/ident"
)

// RecordKey is the KV key the whole cache is persisted under.
const RecordKey = "resolutionCache"

// record is the persisted form of the cache:
//
//	{"uuidCache": {"<id>": {"data": {"type": "table", "name": "a.b.c"}, "cachedAt": 1705311000000}},
//	 "cacheUpdatedAt": 1705311000000}
//
// cacheUpdatedAt is null after Clear and before the first Merge.
type record struct {
	Entries   map[string]entry `json:"uuidCache"`
	UpdatedAt *int64           `json:"cacheUpdatedAt"`
}

type entry struct {
	Value    ident.ResolvedName `json:"data"`
	CachedAt int64              `json:"cachedAt"`
}

func emptyRecord() *record {
	return &record{Entries: make(map[string]entry)}
}

func (e entry) cachedAt() time.Time {
	return time.UnixMilli(e.CachedAt)
}

// fresh reports whether e is still within ttl at now.
func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.cachedAt()) < TTL
}
