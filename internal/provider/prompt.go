// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olegiv/transync/internal/model"
)

// buildSystemPrompt assembles the translation instructions for one request:
// base rules, protected terms, direction-specific internal link rewriting and
// per-record-type guidance, ending with the strict JSON output contract.
func buildSystemPrompt(req Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a professional translator specializing in cannabis industry content.
Translate from %s to %s.

CRITICAL RULES:
1. Preserve ALL HTML tags exactly as they appear (e.g., <p>, <h3>, <strong>, <a>)
2. Maintain technical cannabis terminology accuracy
3. Preserve the tone and style of the original text
4. Keep the following terms UNCHANGED, reproduced verbatim:
`, req.Direction.SourceName(), req.Direction.TargetName())

	for _, term := range req.ProtectedTerms {
		fmt.Fprintf(&b, "   - %s\n", term)
	}

	b.WriteString(linkRules(req.Direction))
	b.WriteString(recordTypeRules(req.RecordType))

	b.WriteString(`
OUTPUT FORMAT:
Return ONLY a valid JSON object with field names as keys and translations as values.
Example: {"title": "translated title", "description": "translated description"}

DO NOT include explanations, comments, markdown code blocks, or any text outside the JSON object.
Return raw JSON only.
`)
	return b.String()
}

// linkRules rewrites internal links so each language variant points at its
// own URL space: English pages live under the /en/ prefix, Spanish pages at
// the root.
func linkRules(d model.Direction) string {
	switch {
	case d.Target == model.LangEnglish:
		return `
INTERNAL LINKS:
- Add the /en/ prefix to internal links: href="/strain/..." becomes href="/en/strain/..."
- DO NOT modify external links (starting with http:// or https://)
- DO NOT modify links that already have the /en/ prefix
`
	case d.Source == model.LangEnglish:
		return `
INTERNAL LINKS:
- Remove the /en/ prefix from internal links: href="/en/strain/..." becomes href="/strain/..."
- DO NOT modify external links (starting with http:// or https://)
`
	default:
		return ""
	}
}

func recordTypeRules(recordType string) string {
	switch recordType {
	case model.EntityTypeStrain:
		return `
This content describes a cannabis strain: effects, flavors, genetics and
growing characteristics. Keep strain names and terpene names untranslated.
`
	case model.EntityTypeTerpene:
		return `
This content describes a terpene. Terpene names stay in English in every
language variant.
`
	default:
		return ""
	}
}

// buildUserPrompt serializes the field map as the JSON payload to translate.
func buildUserPrompt(fields map[string]string) (string, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding translation payload: %w", err)
	}
	return "Translate the values of the following JSON object:\n\n" + string(payload), nil
}
