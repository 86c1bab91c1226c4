package vtree

import (
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher is the sum type backing Projection's include/exclude lists: a
// compiled glob, a regular expression, or a caller predicate. The
// dispatcher over match/matchPrefix is total — every Matcher
// implementation answers both.
type Matcher interface {
	// match reports whether candidate (already relativized to the
	// Projection's cwd) is matched.
	match(candidate string) bool
	// matchPrefix reports whether some descendant of the directory
	// candidate could still match — used for descent pruning. Glob
	// matchers answer this with a genuine partial match; regex and
	// predicate matchers conservatively always answer true (always
	// traverse).
	matchPrefix(candidate string) bool
	// isGlob distinguishes glob matchers, since pruning is only
	// attempted "when all include matchers are globs".
	isGlob() bool
}

type globMatcher struct {
	raw      string
	segments []string
	baseOnly bool // pattern has no "/": match against the basename only
}

// Glob builds a Matcher from a glob pattern, compiled against
// github.com/bmatcuk/doublestar. A pattern with no "/" matches the
// candidate's basename rather than its full path — this is what makes
// include=["*.js"] reach "subdir/baz.js" via its basename rather than
// requiring the full relative path to be spelled out.
func Glob(pattern string) Matcher {
	return &globMatcher{
		raw:      pattern,
		segments: strings.Split(pattern, "/"),
		baseOnly: !strings.Contains(pattern, "/"),
	}
}

func (g *globMatcher) isGlob() bool { return true }

func (g *globMatcher) match(candidate string) bool {
	target := candidate
	if g.baseOnly {
		target = path.Base(candidate)
	}
	ok, err := doublestar.Match(g.raw, target)
	return err == nil && ok
}

// matchPrefix decides whether candidate, a directory not itself matched,
// could still contain a matching descendant. Doublestar has no native
// partial-match mode (unlike minimatch's matchOne(parts, pattern, partial:
// true)), so this walks the pattern and candidate segment by segment:
// any "**" component can absorb arbitrarily many further segments, so it
// always leaves the match viable; otherwise each consumed segment must
// itself match literally/by-class, and running out of candidate segments
// before the pattern is exhausted is still viable (there may be more on
// disk below candidate).
func (g *globMatcher) matchPrefix(candidate string) bool {
	if g.baseOnly {
		// A basename pattern can match anything at any depth below
		// candidate, so descending is always worth it.
		return true
	}
	candSegs := strings.Split(candidate, "/")
	i, j := 0, 0
	for i < len(g.segments) && j < len(candSegs) {
		seg := g.segments[i]
		if seg == "**" {
			return true
		}
		ok, err := doublestar.Match(seg, candSegs[j])
		if err != nil || !ok {
			return false
		}
		i++
		j++
	}
	return true
}

type regexMatcher struct {
	re *regexp.Regexp
}

// Regex builds a Matcher from a compiled regular expression, matched
// against the candidate's full relative path.
func Regex(re *regexp.Regexp) Matcher {
	return &regexMatcher{re: re}
}

func (r *regexMatcher) isGlob() bool                    { return false }
func (r *regexMatcher) match(candidate string) bool     { return r.re.MatchString(candidate) }
func (r *regexMatcher) matchPrefix(candidate string) bool { return true }

type predicateMatcher struct {
	fn func(string) bool
}

// Predicate builds a Matcher from an arbitrary caller function.
func Predicate(fn func(string) bool) Matcher {
	return &predicateMatcher{fn: fn}
}

func (p *predicateMatcher) isGlob() bool                    { return false }
func (p *predicateMatcher) match(candidate string) bool     { return p.fn(candidate) }
func (p *predicateMatcher) matchPrefix(candidate string) bool { return true }

// allGlobs reports whether every matcher in ms is a glob matcher.
func allGlobs(ms []Matcher) bool {
	if len(ms) == 0 {
		return false
	}
	for _, m := range ms {
		if !m.isGlob() {
			return false
		}
	}
	return true
}

func anyMatch(ms []Matcher, candidate string) bool {
	for _, m := range ms {
		if m.match(candidate) {
			return true
		}
	}
	return false
}
