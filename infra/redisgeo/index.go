// Package redisgeo implements the geo index on Redis. Location records live
// in a hash keyed by technician id; a sorted set of "geohash|technicianId"
// members, all at score zero, gives lexicographic range queries over geohash
// prefixes via ZRANGEBYLEX.
package redisgeo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fieldserve/dispatch/core/model"
)

const (
	zsetKey    = "geo:index"
	recordsKey = "geo:records"
)

// Config defines the Redis connection parameters.
type Config struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = "localhost:6379"
	}
}

// New dials Redis and returns an Index over it.
func New(ctx context.Context, cfg Config) (*Index, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Index{rdb: rdb}, nil
}

// NewWithClient wraps an existing client, used by tests with miniredis.
func NewWithClient(rdb *redis.Client) *Index {
	return &Index{rdb: rdb}
}

// Index implements geo.Index on Redis.
type Index struct {
	rdb *redis.Client
}

// Close releases the underlying client.
func (i *Index) Close() error { return i.rdb.Close() }

func member(geohash, technicianID string) string {
	return geohash + "|" + technicianID
}

// Upsert replaces the technician's record wholesale: the previous sorted-set
// member is removed so a technician is never indexed under two geohashes.
func (i *Index) Upsert(ctx context.Context, rec model.LocationRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal location record: %w", err)
	}

	prev, err := i.rdb.HGet(ctx, recordsKey, rec.TechnicianID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read previous record: %w", err)
	}

	pipe := i.rdb.TxPipeline()
	if err == nil {
		var old model.LocationRecord
		if jsonErr := json.Unmarshal([]byte(prev), &old); jsonErr == nil && old.Geohash != "" {
			pipe.ZRem(ctx, zsetKey, member(old.Geohash, rec.TechnicianID))
		}
	}
	pipe.ZAdd(ctx, zsetKey, redis.Z{Score: 0, Member: member(rec.Geohash, rec.TechnicianID)})
	pipe.HSet(ctx, recordsKey, rec.TechnicianID, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert location record: %w", err)
	}
	return nil
}

// RangeQuery returns every record whose geohash falls within [start, end], in
// geohash order.
func (i *Index) RangeQuery(ctx context.Context, start, end string) ([]model.LocationRecord, error) {
	members, err := i.rdb.ZRangeByLex(ctx, zsetKey, &redis.ZRangeBy{
		Min: "[" + start,
		Max: "[" + end,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		idx := strings.LastIndexByte(m, '|')
		if idx < 0 {
			continue
		}
		ids = append(ids, m[idx+1:])
	}
	raw, err := i.rdb.HMGet(ctx, recordsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch records: %w", err)
	}

	recs := make([]model.LocationRecord, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec model.LocationRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
