// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package fingerprint

import (
	"testing"

	"github.com/olegiv/transync/internal/model"
)

func TestClassify(t *testing.T) {
	prev := func(status, textHash, rawHash string) *model.TranslationRecord {
		return &model.TranslationRecord{
			Status:         status,
			SourceTextHash: textHash,
			SourceRawHash:  rawHash,
		}
	}

	tests := []struct {
		name string
		prev *model.TranslationRecord
		next Fingerprint
		skip bool
		want Decision
	}{
		{
			name: "new record dispatches",
			prev: nil,
			next: Fingerprint{TextHash: "t1", RawHash: "r1"},
			want: DecisionDispatch,
		},
		{
			name: "new record with skip",
			prev: nil,
			next: Fingerprint{TextHash: "t1", RawHash: "r1"},
			skip: true,
			want: DecisionSkip,
		},
		{
			name: "raw unchanged is a no-op",
			prev: prev(model.StatusSynced, "t1", "r1"),
			next: Fingerprint{TextHash: "t1", RawHash: "r1"},
			want: DecisionNone,
		},
		{
			name: "raw unchanged on failed record is still a no-op",
			prev: prev(model.StatusFailed, "t1", "r1"),
			next: Fingerprint{TextHash: "t1", RawHash: "r1"},
			want: DecisionNone,
		},
		{
			name: "markup-only change is cosmetic",
			prev: prev(model.StatusSynced, "t1", "r1"),
			next: Fingerprint{TextHash: "t1", RawHash: "r2"},
			want: DecisionCosmetic,
		},
		{
			name: "cosmetic wins even with skip requested",
			prev: prev(model.StatusSynced, "t1", "r1"),
			next: Fingerprint{TextHash: "t1", RawHash: "r2"},
			skip: true,
			want: DecisionCosmetic,
		},
		{
			name: "text change dispatches",
			prev: prev(model.StatusSynced, "t1", "r1"),
			next: Fingerprint{TextHash: "t2", RawHash: "r2"},
			want: DecisionDispatch,
		},
		{
			name: "text change from pending dispatches",
			prev: prev(model.StatusPending, "", ""),
			next: Fingerprint{TextHash: "t1", RawHash: "r1"},
			want: DecisionDispatch,
		},
		{
			name: "text change from failed dispatches",
			prev: prev(model.StatusFailed, "t1", "r1"),
			next: Fingerprint{TextHash: "t2", RawHash: "r2"},
			want: DecisionDispatch,
		},
		{
			name: "skip override wins over semantic change",
			prev: prev(model.StatusSynced, "t1", "r1"),
			next: Fingerprint{TextHash: "t2", RawHash: "r2"},
			skip: true,
			want: DecisionSkip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.prev, tt.next, tt.skip); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecisionString(t *testing.T) {
	for d, want := range map[Decision]string{
		DecisionNone:     "none",
		DecisionCosmetic: "cosmetic",
		DecisionSkip:     "skip",
		DecisionDispatch: "dispatch",
		Decision(99):     "unknown",
	} {
		if got := d.String(); got != want {
			t.Errorf("Decision(%d).String() = %q, want %q", d, got, want)
		}
	}
}
