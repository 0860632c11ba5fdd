// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Direction
		wantErr bool
	}{
		{name: "english to spanish", input: "en-to-es", want: Direction{Source: "en", Target: "es"}},
		{name: "spanish to english", input: "es-to-en", want: Direction{Source: "es", Target: "en"}},
		{name: "missing separator", input: "en-es", wantErr: true},
		{name: "unsupported language", input: "en-to-de", wantErr: true},
		{name: "garbage code", input: "en-to-zzzz!", wantErr: true},
		{name: "identical languages", input: "en-to-en", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDirection(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDirection(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDirectionRoundTrip(t *testing.T) {
	d, err := ParseDirection("en-to-es")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "en-to-es" {
		t.Errorf("String() = %q, want en-to-es", d.String())
	}
	if d.Reversed().String() != "es-to-en" {
		t.Errorf("Reversed().String() = %q, want es-to-en", d.Reversed().String())
	}
	if d.SourceName() != "English" || d.TargetName() != "Spanish" {
		t.Errorf("names = %q/%q, want English/Spanish", d.SourceName(), d.TargetName())
	}
}

func TestNeedsTranslation(t *testing.T) {
	tests := []struct {
		name   string
		record TranslationRecord
		hash   string
		want   bool
	}{
		{name: "pending", record: TranslationRecord{Status: StatusPending}, hash: "h1", want: true},
		{name: "outdated", record: TranslationRecord{Status: StatusOutdated, SourceTextHash: "h1"}, hash: "h1", want: true},
		{name: "failed", record: TranslationRecord{Status: StatusFailed, SourceTextHash: "h1"}, hash: "h1", want: true},
		{name: "synced matching hash", record: TranslationRecord{Status: StatusSynced, SourceTextHash: "h1"}, hash: "h1", want: false},
		{name: "synced drifted hash", record: TranslationRecord{Status: StatusSynced, SourceTextHash: "h1"}, hash: "h2", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.NeedsTranslation(tt.hash); got != tt.want {
				t.Errorf("NeedsTranslation(%q) = %v, want %v", tt.hash, got, tt.want)
			}
		})
	}
}

func TestProtectedTermsFor(t *testing.T) {
	rec := &ContentRecord{Type: EntityTypeStrain, Name: "Northern Lights"}
	terms := ProtectedTermsFor(rec)

	found := map[string]bool{}
	for _, term := range terms {
		found[term] = true
	}
	for _, want := range []string{"Northern Lights", "THC", "Limonene"} {
		if !found[want] {
			t.Errorf("protected terms missing %q: %v", want, terms)
		}
	}

	if got := ProtectedTermsFor(&ContentRecord{Type: "unknown"}); got != nil {
		t.Errorf("unknown type should have no protected terms, got %v", got)
	}
}

func TestContentRecordFields(t *testing.T) {
	rec := &ContentRecord{Type: EntityTypeArticle}
	if rec.HasContent("en") {
		t.Error("empty record should not have content")
	}

	rec.SetField("en", "title", "Growing basics")
	if !rec.HasContent("en") {
		t.Error("record with a title should have content")
	}
	if rec.HasContent("es") {
		t.Error("record without spanish fields should not have es content")
	}

	fields := rec.FieldsFor("en")
	fields["title"] = "mutated"
	if rec.Fields["en"]["title"] != "Growing basics" {
		t.Error("FieldsFor must return a copy")
	}
}
