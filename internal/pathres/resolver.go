// Package pathres translates natural-language location phrases into concrete
// absolute paths relative to a tracked current-directory context.
//
// Resolution runs an ordered rule chain: known shortcuts first, then relative
// navigation tokens, then matching against the entries of the current
// directory. Ties inside the entry tier break as exact case-insensitive match
// over unique prefix over unique substring; anything still ambiguous fails
// with the candidates rather than guessing.
package pathres

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aide/internal/logging"
)

// Context tracks the session's notion of "current location".
type Context struct {
	// Dir is the current absolute path.
	Dir string
}

// Resolver resolves natural-language path expressions.
type Resolver struct {
	home      string
	root      string // boundary; empty means unbounded
	shortcuts map[string]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithHome overrides the user home directory (used by tests).
func WithHome(home string) Option {
	return func(r *Resolver) { r.home = home }
}

// WithRoot sets a boundary the resolver refuses to resolve above.
func WithRoot(root string) Option {
	return func(r *Resolver) { r.root = filepath.Clean(root) }
}

// New creates a Resolver. The home directory defaults to the OS user home.
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		r.home = home
	}
	r.shortcuts = buildShortcuts(r.home)
	return r, nil
}

// buildShortcuts maps folded phrases to fixed absolute paths.
// Shortcut hits are independent of the current directory.
func buildShortcuts(home string) map[string]string {
	return map[string]string{
		"home":           home,
		"home directory": home,
		"home folder":    home,
		"~":              home,
		"desktop":        filepath.Join(home, "Desktop"),
		"documents":      filepath.Join(home, "Documents"),
		"docs":           filepath.Join(home, "Documents"),
		"downloads":      filepath.Join(home, "Downloads"),
		"root":           string(os.PathSeparator),
		"/":              string(os.PathSeparator),
	}
}

// Resolve translates an expression into an absolute path.
// Fails with ErrUnresolved, ErrAboveRoot, ErrOutsideRoot or *AmbiguousError.
func (r *Resolver) Resolve(expression string, dirctx Context) (string, error) {
	raw := strings.TrimSpace(expression)
	if raw == "" {
		return "", fmt.Errorf("%w: empty expression", ErrUnresolved)
	}

	// Literal paths bypass the phrase rules entirely.
	if path, ok := r.literalPath(raw, dirctx); ok {
		return r.enforceRoot(expression, path)
	}

	phrase := normalize(raw)
	logging.ResolverDebug("resolve: raw=%q phrase=%q dir=%s", raw, phrase, dirctx.Dir)

	// Ordered rule chain. Each tier either decides or defers to the next.
	for _, rule := range []func(string, Context) (string, bool, error){
		r.resolveShortcut,
		r.resolveRelative,
		r.resolveEntry,
	} {
		path, ok, err := rule(phrase, dirctx)
		if err != nil {
			return "", err
		}
		if ok {
			return r.enforceRoot(expression, path)
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnresolved, expression)
}

// Absolutize turns a plain path argument into an absolute path against the
// directory context. No phrase matching; "~" expands to home. The workspace
// root boundary still applies.
func (r *Resolver) Absolutize(path string, dirctx Context) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnresolved)
	}
	abs, ok := r.literalPath(path, dirctx)
	if !ok {
		abs = filepath.Clean(filepath.Join(dirctx.Dir, path))
	}
	return r.enforceRoot(path, abs)
}

// literalPath handles absolute paths, "~" expansion and dot-relative paths.
func (r *Resolver) literalPath(raw string, dirctx Context) (string, bool) {
	switch {
	case raw == "~":
		return r.home, true
	case strings.HasPrefix(raw, "~/"):
		return filepath.Join(r.home, raw[2:]), true
	case filepath.IsAbs(raw):
		return filepath.Clean(raw), true
	case raw == ".":
		return filepath.Clean(dirctx.Dir), true
	case raw == ".." || strings.HasPrefix(raw, "../") || strings.HasPrefix(raw, "./"):
		return filepath.Clean(filepath.Join(dirctx.Dir, raw)), true
	}
	return "", false
}

// politeness words stripped before rule matching. Filler only; tokens that
// carry meaning for the rules below ("up", "level", numbers) are kept.
var fillerWords = map[string]bool{
	"please": true, "go": true, "to": true, "into": true, "the": true,
	"my": true, "navigate": true, "cd": true, "change": true, "directory": true,
	"folder": true, "dir": true, "take": true, "me": true,
}

// normalize case-folds the expression and strips politeness phrasing.
func normalize(raw string) string {
	folded := strings.ToLower(raw)
	folded = strings.Trim(folded, ".!?,;: ")

	fields := strings.Fields(folded)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if fillerWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	if len(kept) == 0 {
		// Pure filler like "go to the folder"; keep the folded original so
		// the entry tier can still try it verbatim.
		return folded
	}
	return strings.Join(kept, " ")
}

// resolveShortcut is tier 1: exact known shortcuts, context-independent.
func (r *Resolver) resolveShortcut(phrase string, _ Context) (string, bool, error) {
	if path, ok := r.shortcuts[phrase]; ok {
		logging.ResolverDebug("shortcut hit: %q -> %s", phrase, path)
		return path, true, nil
	}
	return "", false, nil
}

// wordNumbers supports "up two levels" style phrasing.
var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// resolveRelative is tier 2: "up one level", "up N levels", "back", "parent".
func (r *Resolver) resolveRelative(phrase string, dirctx Context) (string, bool, error) {
	levels := 0

	switch phrase {
	case "up", "back", "parent", "up a level", "up one level", "one level up":
		levels = 1
	default:
		fields := strings.Fields(phrase)
		// Accept "up N levels" and "N levels up".
		if len(fields) >= 2 && (fields[0] == "up" || fields[len(fields)-1] == "up") {
			for _, f := range fields {
				if n, ok := wordNumbers[f]; ok {
					levels = n
					break
				}
				if n, err := parsePositiveInt(f); err == nil {
					levels = n
					break
				}
			}
		}
	}

	if levels == 0 {
		return "", false, nil
	}

	return r.climb(dirctx.Dir, levels)
}

// climb returns the levels-th ancestor of dir, failing at the root boundary.
func (r *Resolver) climb(dir string, levels int) (string, bool, error) {
	current := filepath.Clean(dir)
	for i := 0; i < levels; i++ {
		parent := filepath.Dir(current)
		if parent == current {
			return "", false, fmt.Errorf("%w: %d level(s) from %s", ErrAboveRoot, levels, dir)
		}
		current = parent
	}
	logging.ResolverDebug("relative hit: %d level(s) from %s -> %s", levels, dir, current)
	return current, true, nil
}

// resolveEntry is tier 3: match against directory entries of the current
// context. Only directories participate since the result is a destination.
func (r *Resolver) resolveEntry(phrase string, dirctx Context) (string, bool, error) {
	entries, err := os.ReadDir(dirctx.Dir)
	if err != nil {
		return "", false, fmt.Errorf("failed to list %s: %w", dirctx.Dir, err)
	}

	var exact, prefix, substring []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		folded := strings.ToLower(name)
		switch {
		case folded == phrase:
			exact = append(exact, name)
		case strings.HasPrefix(folded, phrase):
			prefix = append(prefix, name)
		case strings.Contains(folded, phrase):
			substring = append(substring, name)
		}
	}

	// Tie-break order: exact beats prefix beats substring. Within a tier a
	// unique candidate wins; multiple candidates are surfaced, not guessed.
	for _, tier := range [][]string{exact, prefix, substring} {
		switch len(tier) {
		case 0:
			continue
		case 1:
			path := filepath.Join(dirctx.Dir, tier[0])
			logging.ResolverDebug("entry hit: %q -> %s", phrase, path)
			return path, true, nil
		default:
			sort.Strings(tier)
			return "", false, &AmbiguousError{Expression: phrase, Candidates: tier}
		}
	}

	return "", false, nil
}

// enforceRoot applies the workspace boundary hook.
func (r *Resolver) enforceRoot(expression, path string) (string, error) {
	if r.root == "" {
		return path, nil
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %q resolves to %s", ErrOutsideRoot, expression, path)
	}
	return path, nil
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("not a number")
		}
		n = n*10 + int(c-'0')
	}
	if n == 0 {
		return 0, fmt.Errorf("zero")
	}
	return n, nil
}
