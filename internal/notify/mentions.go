package notify

import "regexp"

// A mention is a literal @ followed by a run of ASCII letters, digits, or
// underscores; the run is the candidate username.
var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// MentionCandidates returns the distinct usernames mentioned in text, in
// first-appearance order. Dedup is case-sensitive to match exact username
// lookup, so the same name is never looked up twice for one text.
func MentionCandidates(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	candidates := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		candidates = append(candidates, name)
	}
	return candidates
}
