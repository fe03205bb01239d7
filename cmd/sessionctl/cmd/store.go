package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store/gormstore"
	"github.com/MrEthical07/goSession/store/redisstore"
)

// profileAdmin is a profile store with the seeding operations.
type profileAdmin interface {
	goSession.ProfileStore
	PutProfiles(ctx context.Context, userID string, profiles []goSession.Profile) error
	DeleteProfiles(ctx context.Context, userID string, profileIDs ...string) (int, error)
}

var errNoStore = errors.New("no profile store configured: set --database-url or --redis-addr")

// openStore connects the configured backend. With allowEphemeral and no
// backend configured it starts an in-process miniredis.
func openStore(ctx context.Context, allowEphemeral bool) (profileAdmin, string, func(), error) {
	if url := settings.GetString("database-url"); url != "" {
		db, err := gormstore.Connect(ctx, url, 4)
		if err != nil {
			return nil, "", nil, err
		}
		if err := gormstore.RunMigrations(ctx, db); err != nil {
			return nil, "", nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return gormstore.New(db), "postgres", closeDB, nil
	}

	addr := settings.GetString("redis-addr")
	var mr *miniredis.Miniredis
	if addr == "" {
		if !allowEphemeral {
			return nil, "", nil, errNoStore
		}
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, "", nil, fmt.Errorf("start miniredis: %w", err)
		}
		addr = mr.Addr()
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	store := redisstore.New(rdb, settings.GetString("redis-prefix"))
	if err := store.Ping(ctx); err != nil {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
		return nil, "", nil, err
	}

	closeRedis := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}
	backend := "redis " + addr
	if mr != nil {
		backend = "miniredis " + addr
	}
	return store, backend, closeRedis, nil
}
