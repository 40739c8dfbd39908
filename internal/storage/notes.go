package storage

import "strings"

// SplitNotes decodes a comma-joined note layer into an ordered list of
// non-empty trimmed terms. An empty field yields an empty list.
func SplitNotes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	chunks := strings.Split(raw, ",")
	notes := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			notes = append(notes, trimmed)
		}
	}
	return notes
}

// JoinNotes serializes a note list for storage: terms are trimmed, empties
// dropped and duplicates removed while preserving first-seen order.
func JoinNotes(notes []string) string {
	seen := make(map[string]struct{}, len(notes))
	kept := make([]string, 0, len(notes))
	for _, n := range notes {
		trimmed := strings.TrimSpace(n)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, ",")
}
