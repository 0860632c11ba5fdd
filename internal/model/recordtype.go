// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Entity types known to the sync engine.
const (
	EntityTypeStrain  = "strain"
	EntityTypeArticle = "article"
	EntityTypeTerpene = "terpene"
)

// RecordType describes how one entity type participates in translation:
// which fields are translatable, which of them hold rich text (HTML) or
// markdown, and which terms the provider must reproduce verbatim.
type RecordType struct {
	Name string

	// TranslatableFields is the ordered list of fields included in
	// fingerprints and provider payloads.
	TranslatableFields []string

	// RichTextFields hold HTML markup; their plain text is extracted
	// before fingerprinting.
	RichTextFields map[string]bool

	// MarkdownFields hold markdown; they are rendered to HTML before
	// plain-text extraction so formatting-only edits stay cosmetic.
	MarkdownFields map[string]bool

	// ProtectedTerms are reproduced verbatim by the provider in addition
	// to the record's own name.
	ProtectedTerms []string
}

// measurementTerms must survive translation untouched for every record type.
var measurementTerms = []string{"THC", "CBD", "CBG", "CBN", "mg/g"}

// terpeneNames stay in English in both language variants.
var terpeneNames = []string{
	"Limonene", "Myrcene", "Pinene", "Caryophyllene", "Linalool",
	"Humulene", "Terpinolene", "Ocimene",
}

// recordTypes is the registry of translatable entity types.
var recordTypes = map[string]RecordType{
	EntityTypeStrain: {
		Name:               EntityTypeStrain,
		TranslatableFields: []string{"title", "description", "text_content", "keywords", "img_alt_text"},
		RichTextFields:     map[string]bool{"description": true, "text_content": true},
		ProtectedTerms:     append(append([]string{}, measurementTerms...), terpeneNames...),
	},
	EntityTypeArticle: {
		Name:               EntityTypeArticle,
		TranslatableFields: []string{"title", "description", "text_content", "keywords"},
		RichTextFields:     map[string]bool{"text_content": true},
		MarkdownFields:     map[string]bool{"description": true},
		ProtectedTerms:     measurementTerms,
	},
	EntityTypeTerpene: {
		Name:               EntityTypeTerpene,
		TranslatableFields: []string{"description"},
		RichTextFields:     map[string]bool{"description": true},
		ProtectedTerms:     append(append([]string{}, measurementTerms...), terpeneNames...),
	},
}

// RecordTypeFor returns the registry entry for an entity type.
func RecordTypeFor(name string) (RecordType, bool) {
	rt, ok := recordTypes[name]
	return rt, ok
}

// RecordTypeNames returns all registered entity type names in stable order.
func RecordTypeNames() []string {
	return []string{EntityTypeStrain, EntityTypeArticle, EntityTypeTerpene}
}

// ProtectedTermsFor returns the protected-term list for a record: the type's
// base terms plus the record's own proper-noun name when set.
func ProtectedTermsFor(rec *ContentRecord) []string {
	rt, ok := recordTypes[rec.Type]
	if !ok {
		return nil
	}
	terms := make([]string, 0, len(rt.ProtectedTerms)+1)
	terms = append(terms, rt.ProtectedTerms...)
	if rec.Name != "" {
		terms = append(terms, rec.Name)
	}
	return terms
}
