package resolver

import (
	"context"
	"slices"
	"strings"
	"unicode"

	"github.com/starford/notegen/internal/frontmatter"
)

// TagOptions configures tag normalization.
type TagOptions struct {
	// PipeAsSeparator treats "|" as a hierarchy separator equivalent to "/".
	// When false, "a|b" and "a/b" stay distinct tags.
	PipeAsSeparator bool
	// Suggest enables content keyword suggestions under "suggested_tags".
	Suggest bool
	// MaxSuggestions caps the number of suggestions. Zero means 5.
	MaxSuggestions int
}

// Tags normalizes tags gathered from metadata and inline #tags, drops tags
// that collide with reserved keys, and optionally suggests new ones.
type Tags struct {
	opts TagOptions
}

// NewTags returns a Tags resolver.
func NewTags(opts TagOptions) *Tags {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 5
	}
	return &Tags{opts: opts}
}

// ConflictsKey holds the tags dropped because they collide with reserved
// keys. Callers report it and must not write it to a note.
const ConflictsKey = "tag_conflicts"

// FileType returns the tags kind.
func (*Tags) FileType() string { return string(KindTags) }

// CanResolve reports whether field is a tag field this resolver produces.
func (t *Tags) CanResolve(field string, _ *Context) bool {
	return field == "tags" || (t.opts.Suggest && field == "suggested_tags")
}

// Resolve returns a single tag field.
func (t *Tags) Resolve(ctx context.Context, field string, rc *Context) (any, error) {
	return resolveFrom(ctx, t, []string{"tags", "suggested_tags"}, field, rc)
}

// ExtractMetadata merges explicit and inline tags, normalizes them and drops
// those that conflict with reserved keys.
func (t *Tags) ExtractMetadata(ctx context.Context, rc *Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := slices.Clone(rc.Tags)
	raw = append(raw, frontmatter.InlineTags(rc.Content)...)

	tags := t.Normalize(raw)
	conflicts := Conflicts(tags, rc.Reserved)
	if len(conflicts) > 0 {
		tags = slices.DeleteFunc(tags, func(s string) bool { return slices.Contains(conflicts, s) })
	}

	out := map[string]any{"tags": tags}
	if len(conflicts) > 0 {
		out[ConflictsKey] = conflicts
	}
	if t.opts.Suggest || rc.Flag(FlagSuggestTags) {
		if s := t.Suggest(rc.Content, tags); len(s) > 0 {
			out["suggested_tags"] = s
		}
	}
	return out, nil
}

// Normalize lowercases tags, joins whitespace runs with "-", keeps "/"
// hierarchy, drops empty segments and removes case-insensitive duplicates
// keeping the first occurrence.
func (t *Tags) Normalize(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		n := t.normalizeOne(raw)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func (t *Tags) normalizeOne(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimLeft(s, "#")
	if t.opts.PipeAsSeparator {
		s = strings.ReplaceAll(s, "|", "/")
	}
	parts := strings.Split(s, "/")
	segs := parts[:0]
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), "-")
		if p != "" {
			segs = append(segs, p)
		}
	}
	return strings.Join(segs, "/")
}

// Conflicts returns the tags whose name, or top-level segment, equals a
// reserved key.
func Conflicts(tags, reserved []string) []string {
	if len(reserved) == 0 {
		return nil
	}
	var out []string
	for _, tag := range tags {
		root, _, _ := strings.Cut(tag, "/")
		for _, r := range reserved {
			if strings.EqualFold(tag, r) || (root != tag && strings.EqualFold(root, r)) {
				out = append(out, tag)
				break
			}
		}
	}
	return out
}

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`about above after again against also among been before being
		below between both could does doing down during each either every from further have having
		here hers herself himself into itself just more most much must other ought ours ourselves
		over same shall should some such than that their theirs them themselves then there these
		they this those through under until very were what when where which while will with within
		without would your yours yourself yourselves because whom whose upon using used`) {
		stopWords[w] = struct{}{}
	}
}

// Suggest ranks content keywords by frequency, skipping stop words, short
// words and tags already present. Ties break alphabetically.
func (t *Tags) Suggest(content string, existing []string) []string {
	_, body := frontmatter.Split([]byte(content))
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(strings.ToLower(body), func(r rune) bool {
		return !unicode.IsLetter(r)
	}) {
		if len([]rune(w)) < 4 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		counts[w]++
	}
	for _, e := range existing {
		delete(counts, e)
	}

	words := make([]string, 0, len(counts))
	for w, n := range counts {
		if n >= 2 {
			words = append(words, w)
		}
	}
	slices.SortFunc(words, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	if len(words) > t.opts.MaxSuggestions {
		words = words[:t.opts.MaxSuggestions]
	}
	return words
}
