// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package datagov

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmallick07/project-samarth-backend/pkg/types"
)

func TestCachePutGet(t *testing.T) {
	c := NewCache(time.Minute)
	res := &types.DatasetResult{ResourceID: "r1", Title: "Rainfall"}

	_, ok := c.Get("r1")
	assert.False(t, ok)

	c.Put("r1", res)
	got, ok := c.Get("r1")
	require.True(t, ok)
	assert.Same(t, res, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheExpiry(t *testing.T) {
	base := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	old := timeNow
	timeNow = func() time.Time { return now }
	defer func() { timeNow = old }()

	c := NewCache(10 * time.Minute)
	c.Put("r1", &types.DatasetResult{ResourceID: "r1"})

	now = base.Add(9 * time.Minute)
	_, ok := c.Get("r1")
	assert.True(t, ok, "entry should survive within TTL")

	now = base.Add(11 * time.Minute)
	_, ok = c.Get("r1")
	assert.False(t, ok, "entry should expire after TTL")
	assert.Equal(t, 0, c.Len())
}

func TestCacheKeyNormalization(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]string
		same bool
	}{
		{
			name: "order independent",
			a:    map[string]string{"state": "Punjab", "crop": "Wheat"},
			b:    map[string]string{"crop": "Wheat", "state": "Punjab"},
			same: true,
		},
		{
			name: "case and whitespace insensitive",
			a:    map[string]string{"State Name": " Punjab "},
			b:    map[string]string{"state_name": "punjab"},
			same: true,
		},
		{
			name: "different values differ",
			a:    map[string]string{"state": "Punjab"},
			b:    map[string]string{"state": "Haryana"},
			same: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka := CacheKey("res", tt.a)
			kb := CacheKey("res", tt.b)
			if tt.same {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}

	assert.Equal(t, "res", CacheKey("res", nil))
	assert.NotEqual(t, CacheKey("res1", nil), CacheKey("res2", nil))
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("res-%d", i%5)
			c.Put(key, &types.DatasetResult{ResourceID: key})
			c.Get(key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, c.Len())
}
