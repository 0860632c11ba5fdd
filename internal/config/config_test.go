// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"testing"
	"time"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TRANSYNC_OPENAI_API_KEY", "sk-test")
}

func TestLoadDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "./data/transync.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Direction != "en-to-es" {
		t.Errorf("Direction = %q", cfg.Direction)
	}
	if cfg.DispatchMode != DispatchInline {
		t.Errorf("DispatchMode = %q", cfg.DispatchMode)
	}
	if !cfg.AutoTranslate {
		t.Error("AutoTranslate must default to true")
	}
	if cfg.ProviderTimeout != 90*time.Second {
		t.Errorf("ProviderTimeout = %v", cfg.ProviderTimeout)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("default env must be development")
	}

	d, err := cfg.ParsedDirection()
	if err != nil {
		t.Fatalf("ParsedDirection: %v", err)
	}
	if d.Source != "en" || d.Target != "es" {
		t.Errorf("direction = %+v", d)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing openai key",
			env:  map[string]string{},
		},
		{
			name: "anthropic provider without key",
			env:  map[string]string{"TRANSYNC_PROVIDER": "anthropic"},
		},
		{
			name: "unknown provider",
			env: map[string]string{
				"TRANSYNC_OPENAI_API_KEY": "sk-test",
				"TRANSYNC_PROVIDER":       "deepl",
			},
		},
		{
			name: "bad direction",
			env: map[string]string{
				"TRANSYNC_OPENAI_API_KEY": "sk-test",
				"TRANSYNC_DIRECTION":      "en-to-fr",
			},
		},
		{
			name: "queued mode without redis",
			env: map[string]string{
				"TRANSYNC_OPENAI_API_KEY": "sk-test",
				"TRANSYNC_DISPATCH_MODE":  "queued",
			},
		},
		{
			name: "unknown dispatch mode",
			env: map[string]string{
				"TRANSYNC_OPENAI_API_KEY": "sk-test",
				"TRANSYNC_DISPATCH_MODE":  "fanout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadQueuedMode(t *testing.T) {
	setValidEnv(t)
	t.Setenv("TRANSYNC_DISPATCH_MODE", "queued")
	t.Setenv("TRANSYNC_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DispatchMode != DispatchQueued {
		t.Errorf("DispatchMode = %q", cfg.DispatchMode)
	}
	if cfg.QueueKey != "transync:jobs" {
		t.Errorf("QueueKey = %q", cfg.QueueKey)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	setValidEnv(t)
	t.Setenv("TRANSYNC_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("TRANSYNC_RETRY_MAX_DELAY", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d", policy.MaxRetries)
	}
	if policy.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v", policy.MaxBackoff)
	}
}
