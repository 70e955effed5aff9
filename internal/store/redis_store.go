package store

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/game-station-rental/internal/model"
)

// Redis keys for the four logical records.  The layout mirrors the original
// cashier's storage: device state as one document, revenue as a bare number,
// and the tier durations and prices as two small maps.
const (
	keyDeviceStates = "cashier:device_states"
	keyRevenue      = "cashier:total_revenue"
	keyDurations    = "cashier:durations"
	keyPrices       = "cashier:prices"
)

// RedisStore persists snapshots in redis.  A nil client disables persistence
// entirely: Load returns defaults and Save is a no-op, so the service keeps
// working memory-only when redis is unreachable.
type RedisStore struct {
	rdb      *redis.Client
	defaults model.Tiers
}

// NewRedisStore returns a store bound to the given client.  The default
// tiers are substituted whenever the persisted tier records are missing or
// malformed.
func NewRedisStore(rdb *redis.Client, defaults model.Tiers) *RedisStore {
	return &RedisStore{rdb: rdb, defaults: defaults}
}

// Load reads the four records.  Each record degrades independently: a
// corrupt device document yields empty session state, a corrupt revenue
// value yields zero, corrupt tier maps yield the defaults.  Load never
// fails; problems are logged and replaced.
func (s *RedisStore) Load(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Devices: map[string]DeviceRecord{},
		Tiers:   s.defaults,
	}
	if s.rdb == nil {
		return snap
	}

	if raw, err := s.rdb.Get(ctx, keyDeviceStates).Result(); err == nil {
		var devices map[string]DeviceRecord
		if jsonErr := json.Unmarshal([]byte(raw), &devices); jsonErr != nil {
			log.Printf("store: corrupt device state record, starting empty: %v", jsonErr)
		} else {
			snap.Devices = devices
		}
	} else if err != redis.Nil {
		log.Printf("store: read device state failed, starting empty: %v", err)
	}

	if raw, err := s.rdb.Get(ctx, keyRevenue).Result(); err == nil {
		var total int
		if jsonErr := json.Unmarshal([]byte(raw), &total); jsonErr != nil || total < 0 {
			log.Printf("store: corrupt revenue record %q, starting at zero", raw)
		} else {
			snap.Revenue = total
		}
	} else if err != redis.Nil {
		log.Printf("store: read revenue failed, starting at zero: %v", err)
	}

	durations := s.loadTierMap(ctx, keyDurations)
	prices := s.loadTierMap(ctx, keyPrices)
	snap.Tiers = mergeTiers(s.defaults, durations, prices)
	return snap
}

// loadTierMap reads one of the two tier records as a {"first": n, "second": n}
// map.  Missing or corrupt records return nil, which keeps the defaults.
func (s *RedisStore) loadTierMap(ctx context.Context, key string) map[model.TierKey]int {
	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("store: read %s failed, keeping defaults: %v", key, err)
		}
		return nil
	}
	var m map[model.TierKey]int
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		log.Printf("store: corrupt record %s, keeping defaults: %v", key, err)
		return nil
	}
	return m
}

// mergeTiers overlays persisted durations and prices on the defaults.
// Values that would make a tier unusable (duration < 1, negative price) are
// ignored rather than loaded.
func mergeTiers(defaults model.Tiers, durations, prices map[model.TierKey]int) model.Tiers {
	tiers := defaults
	for _, k := range []model.TierKey{model.TierFirst, model.TierSecond} {
		t, _ := tiers.ByKey(k)
		if d, ok := durations[k]; ok && d >= 1 {
			t.Minutes = d
		}
		if p, ok := prices[k]; ok && p >= 0 {
			t.Price = p
		}
		tiers.Set(k, t)
	}
	return tiers
}

// Save rewrites all four records atomically via a transaction pipeline.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	if s.rdb == nil {
		return nil
	}
	devices, err := json.Marshal(snap.Devices)
	if err != nil {
		return err
	}
	durations, err := json.Marshal(map[model.TierKey]int{
		model.TierFirst:  snap.Tiers.First.Minutes,
		model.TierSecond: snap.Tiers.Second.Minutes,
	})
	if err != nil {
		return err
	}
	prices, err := json.Marshal(map[model.TierKey]int{
		model.TierFirst:  snap.Tiers.First.Price,
		model.TierSecond: snap.Tiers.Second.Price,
	})
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyDeviceStates, devices, 0)
	pipe.Set(ctx, keyRevenue, snap.Revenue, 0)
	pipe.Set(ctx, keyDurations, durations, 0)
	pipe.Set(ctx, keyPrices, prices, 0)
	_, err = pipe.Exec(ctx)
	return err
}
