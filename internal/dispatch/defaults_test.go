// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultWorkerConfig(t *testing.T) {
	cfg := DefaultWorkerConfig()
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
	assert.Equal(t, float64(30), cfg.RequestsPerMinute)
}

func TestDefaultRedisQueueOptions(t *testing.T) {
	opts := DefaultRedisQueueOptions()
	assert.Empty(t, opts.URL)
	assert.Equal(t, "transync:jobs", opts.Key)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
}
