package importerservice

import (
	"strings"
	"unicode"

	"github.com/combine-hq/combine-server/app/modules/importer/domain"
	schemadomain "github.com/combine-hq/combine-server/app/modules/schema/domain"
)

// MappingResult is the mapper's output: a source-column keyed mapping ready
// to seed a review session, plus a confidence tier per resolved target key.
type MappingResult struct {
	// Mapping maps source column -> target key. Columns that matched nothing
	// are absent, never silently ignored; the data-loss guard depends on
	// that distinction.
	Mapping map[string]string
	// Confidence maps target key -> tier.
	Confidence map[string]domain.Confidence
}

// ComputeMapping computes the best-guess column mapping for a set of source
// headers against the canonical schema. It is a pure function: identical
// inputs always produce identical output, so results are snapshot-testable.
//
// Matching runs in confidence order: exact normalized match, then the alias
// table, then a substring/token-overlap heuristic. Drill keys participate
// only when the import mode includes scores; under a roster-only intent a
// header colliding with a drill key stays unmapped so scores cannot be
// ingested by accident.
func ComputeMapping(sourceColumns []string, schema *schemadomain.TargetSchema, mode domain.ImportMode, aliases Aliases) MappingResult {
	result := MappingResult{
		Mapping:    map[string]string{},
		Confidence: map[string]domain.Confidence{},
	}
	if schema == nil {
		return result
	}

	norms := make([]string, len(sourceColumns))
	for i, col := range sourceColumns {
		norms[i] = normalizeHeader(col)
	}

	drillKeyNorms := map[string]string{}
	for _, d := range schema.Drills {
		drillKeyNorms[normalizeHeader(d.Key)] = d.Key
	}

	claimed := make([]bool, len(sourceColumns))
	mappedTargets := map[string]bool{}

	claim := func(i int, target string, tier domain.Confidence) {
		result.Mapping[sourceColumns[i]] = target
		result.Confidence[target] = tier
		claimed[i] = true
		mappedTargets[target] = true
	}

	// Target keys in deterministic schema order: standard fields first, then
	// drills when in scope.
	type target struct {
		key   string
		drill bool
	}
	var targets []target
	for _, f := range schema.StandardFields {
		targets = append(targets, target{key: f.Key})
	}
	if mode.IncludesScores() {
		for _, d := range schema.Drills {
			targets = append(targets, target{key: d.Key, drill: true})
		}
	}

	// Pass 1: exact normalized match (identity mapping included).
	for _, t := range targets {
		if mappedTargets[t.key] {
			continue
		}
		keyNorm := normalizeHeader(t.key)
		for i := range sourceColumns {
			if claimed[i] {
				continue
			}
			if norms[i] == keyNorm {
				claim(i, t.key, domain.ConfidenceHigh)
				break
			}
		}
	}

	// Pass 2: alias table. Field aliases are trusted synonyms (high); drill
	// aliases are looser sports shorthand (medium).
	for i := range sourceColumns {
		if claimed[i] {
			continue
		}
		if targetKey, ok := aliases.FieldTarget(norms[i]); ok {
			if schema.IsStandardField(targetKey) && !mappedTargets[targetKey] {
				claim(i, targetKey, domain.ConfidenceHigh)
				continue
			}
		}
		if !mode.IncludesScores() {
			continue
		}
		if targetKey, ok := aliases.DrillTarget(norms[i]); ok {
			if _, active := schema.DrillByKey(targetKey); active && !mappedTargets[targetKey] {
				claim(i, targetKey, domain.ConfidenceMedium)
			}
		}
	}

	// Pass 3: substring containment (medium), then token overlap (low).
	for _, t := range targets {
		if mappedTargets[t.key] {
			continue
		}
		keyNorm := normalizeHeader(t.key)
		keyTokens := headerTokens(t.key)
		for i := range sourceColumns {
			if claimed[i] {
				continue
			}
			// Roster-only imports must not fuzzy-match headers that are
			// verbatim drill keys.
			if !mode.IncludesScores() {
				if _, isDrill := drillKeyNorms[norms[i]]; isDrill {
					continue
				}
			}
			if containsEither(norms[i], keyNorm) {
				claim(i, t.key, domain.ConfidenceMedium)
				break
			}
			if tokensOverlap(headerTokens(sourceColumns[i]), keyTokens) {
				claim(i, t.key, domain.ConfidenceLow)
				break
			}
		}
	}

	return result
}

// normalizeHeader case-folds, strips punctuation and whitespace, and
// collapses a trailing plural.
func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return singular(b.String())
}

// singular trims a trailing 's' from words long enough that the trim cannot
// destroy meaning ("scores" -> "score", but "40" and "pos" pass through via
// length guard).
func singular(s string) string {
	if len(s) > 3 && strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}

// headerTokens splits a header into normalized tokens for overlap scoring.
func headerTokens(header string) []string {
	fields := strings.FieldsFunc(strings.ToLower(header), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, singular(f))
	}
	return tokens
}

func containsEither(a, b string) bool {
	if len(a) < 3 || len(b) < 3 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// tokensOverlap reports whether the two token sets share at least one token
// of three or more characters.
func tokensOverlap(a, b []string) bool {
	for _, ta := range a {
		if len(ta) < 3 {
			continue
		}
		for _, tb := range b {
			if ta == tb {
				return true
			}
		}
	}
	return false
}
