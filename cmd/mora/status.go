// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/morahq/mora/internal/apiclient"
	"github.com/morahq/mora/internal/cache"
	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/log"
	"github.com/morahq/mora/internal/session"
)

// runStatus prints a session's current state, consulting the snapshot cache
// before the backend. -refresh invalidates the cached snapshot first.
func runStatus(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	sessionID := fs.String("session", "", "session id (required)")
	refresh := fs.Bool("refresh", false, "drop the cached snapshot and refetch from the backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sessionID == "" {
		fs.Usage()
		return errors.New("status: -session is required")
	}

	ctx = log.ContextWithSessionID(ctx, *sessionID)

	c := snapshotCache(cfg)
	defer func() { _ = c.Close() }()

	if *refresh {
		c.Delete(ctx, *sessionID)
	} else if snap, ok := c.Get(ctx, *sessionID); ok {
		printStatus(snap, "cache")
		return nil
	}

	res, err := apiclient.New(cfg.APIURL).GetSession(ctx, *sessionID)
	if err != nil {
		return err
	}
	snap := res.Snapshot()
	c.Put(ctx, snap, cfg.CacheTTL)

	printStatus(snap, "backend")
	return nil
}

// snapshotCache picks the redis cache when configured; otherwise caching is
// disabled, since an in-process cache cannot outlive a CLI invocation.
func snapshotCache(cfg config.Config) cache.SnapshotCache {
	if cfg.RedisAddr == "" {
		return cache.NewNoop()
	}
	rc, err := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, log.WithComponent("cache"))
	if err != nil {
		logger := log.WithComponent("cache")
		logger.Warn().Err(err).Msg("redis unavailable, running uncached")
		return cache.NewNoop()
	}
	return rc
}

func printStatus(snap session.Snapshot, source string) {
	fmt.Printf("session %s: %s (from %s)\n", snap.ID, snap.Status, source)
	if snap.VideoURL != "" {
		fmt.Printf("video: %s\n", snap.VideoURL)
	}
	if snap.Err != "" {
		fmt.Printf("error: %s\n", snap.Err)
	}
	if snap.Code != "" {
		fmt.Printf("\n%s\n", snap.Code)
	}
}
