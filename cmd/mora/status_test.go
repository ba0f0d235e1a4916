// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morahq/mora/internal/config"
	"github.com/morahq/mora/internal/session"
)

func TestSnapshotCacheWithoutRedisIsNoop(t *testing.T) {
	cfg := config.Default()
	c := snapshotCache(cfg)
	defer func() { _ = c.Close() }()

	c.Put(context.Background(), session.New("s-1", "u"), time.Minute)
	_, found := c.Get(context.Background(), "s-1")
	assert.False(t, found)
}

func TestSnapshotCacheRedisRoundtrip(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.RedisAddr = mr.Addr()

	c := snapshotCache(cfg)
	defer func() { _ = c.Close() }()

	snap := session.New("s-1", "u")
	snap.Code = "print(1)"
	c.Put(context.Background(), snap, time.Minute)

	got, found := c.Get(context.Background(), "s-1")
	require.True(t, found)
	assert.Equal(t, "print(1)", got.Code)

	c.Delete(context.Background(), "s-1")
	_, found = c.Get(context.Background(), "s-1")
	assert.False(t, found, "refresh must invalidate before refetching")
}

func TestSnapshotCacheUnreachableRedisFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.RedisAddr = "127.0.0.1:1"

	c := snapshotCache(cfg)
	defer func() { _ = c.Close() }()

	_, found := c.Get(context.Background(), "s-1")
	assert.False(t, found)
}
