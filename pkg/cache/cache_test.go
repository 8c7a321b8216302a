// Copyright (C) 2026 NestReady Labs (oss@nestready.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New(10)
	c.Set("a", 42, time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestTTLCache_MissingKey(t *testing.T) {
	c := New(10)
	_, ok := c.Get("absent")
	assert.False(t, ok)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New(10)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("a", "v", 5*time.Minute)

	_, ok := c.Get("a")
	assert.True(t, ok)

	current = current.Add(5*time.Minute + time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is removed lazily on access")
}

func TestTTLCache_PerEntryTTL(t *testing.T) {
	c := New(10)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("short", 1, 5*time.Minute)
	c.Set("long", 2, time.Hour)

	current = current.Add(10 * time.Minute)

	_, ok := c.Get("short")
	assert.False(t, ok)
	_, ok = c.Get("long")
	assert.True(t, ok)
}

func TestTTLCache_LRUEviction(t *testing.T) {
	c := New(2)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	// Touch "a" so "b" becomes least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3, time.Minute)

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestTTLCache_OverwriteResetsExpiry(t *testing.T) {
	c := New(10)
	current := time.Now()
	c.now = func() time.Time { return current }

	c.Set("a", 1, 5*time.Minute)
	current = current.Add(4 * time.Minute)
	c.Set("a", 2, 5*time.Minute)
	current = current.Add(4 * time.Minute)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTTLCache_Delete(t *testing.T) {
	c := New(10)
	c.Set("a", 1, time.Minute)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := New(100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Set("k", j, time.Minute)
				c.Get("k")
			}
		}()
	}
	wg.Wait()

	_, ok := c.Get("k")
	assert.True(t, ok)
}
