package auth

import "strings"

// MatchKind selects how a PublicPath is compared with the request path.
type MatchKind int

const (
	// MatchExact requires the request path to equal Path.
	MatchExact MatchKind = iota
	// MatchPrefix admits every request path starting with Path.
	MatchPrefix
)

// PublicPath is one entry of the authentication allow-list.
type PublicPath struct {
	Path  string
	Match MatchKind
}

// defaultPublicPaths is the complete allow-list used when none is configured.
// Requests here pass through as anonymous when their credential is absent or invalid.
var defaultPublicPaths = [...]PublicPath{
	{Path: "/api/v1/auth/login", Match: MatchExact},
	{Path: "/api/v1/health", Match: MatchExact},
	{Path: "/swagger-ui", Match: MatchPrefix},
	{Path: "/api-docs/openapi.json", Match: MatchExact},
}

// DefaultPublicPaths returns a copy of the built-in allow-list.
func DefaultPublicPaths() []PublicPath {
	out := make([]PublicPath, len(defaultPublicPaths))
	copy(out, defaultPublicPaths[:])
	return out
}

// ParsePublicPaths converts configuration entries into an allow-list.
// An entry ending in "*" is a prefix match; blanks are skipped.
func ParsePublicPaths(entries []string) []PublicPath {
	out := make([]PublicPath, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(entry, "*"); ok {
			out = append(out, PublicPath{Path: prefix, Match: MatchPrefix})
			continue
		}
		out = append(out, PublicPath{Path: entry, Match: MatchExact})
	}
	return out
}

type publicPaths []PublicPath

func (p publicPaths) matches(path string) bool {
	for _, entry := range p {
		switch entry.Match {
		case MatchExact:
			if path == entry.Path {
				return true
			}
		case MatchPrefix:
			if strings.HasPrefix(path, entry.Path) {
				return true
			}
		}
	}
	return false
}
