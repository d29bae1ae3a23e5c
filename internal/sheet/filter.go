package sheet

import (
	"sort"
	"strings"

	"github.com/johns/charlog/internal/chatlog"
	"github.com/johns/charlog/internal/tagscan"
)

// Mode selects which filter transformation runs over extracted
// fragments. Exactly one mode is active per FilterConfig.
type Mode int

const (
	// ModeDefault leaves fragments unchanged apart from newline
	// normalization and trimming.
	ModeDefault Mode = iota
	// ModeOmit removes blacklisted tag blocks.
	ModeOmit
	// ModeIncludeOnly keeps only whitelisted tags, each isolated to
	// its own output section.
	ModeIncludeOnly
)

// Pseudo tag names recognized by the filter rules alongside real tags.
const (
	pseudoUntagged     = "untagged content"
	pseudoFirstMessage = "first_message"
)

// FilterConfig is an immutable set of filtering rules captured before a
// parse run. Construct it once and share freely; parses never mutate
// it, so concurrent documents need no locks.
type FilterConfig struct {
	mode    Mode
	omit    map[string]bool
	include map[string]bool
	strip   []string // sorted, lowered

	// ResumeAfterBlock picks the search-resume semantics for
	// extracting repeated occurrences of an included tag: true scans
	// past each matched block (disjoint occurrences only), false
	// re-enters blocks and also yields nested same-name content.
	ResumeAfterBlock bool
}

// Default returns the identity configuration: no removals.
func Default() FilterConfig {
	return FilterConfig{mode: ModeDefault}
}

// Omit returns a blacklist configuration removing the named tags.
func Omit(tags []string) FilterConfig {
	return FilterConfig{mode: ModeOmit, omit: lowerSet(tags)}
}

// IncludeOnly returns a whitelist configuration emitting only the named
// tags. An empty list is valid and includes nothing.
func IncludeOnly(tags []string) FilterConfig {
	return FilterConfig{mode: ModeIncludeOnly, include: lowerSet(tags)}
}

// New builds a FilterConfig from raw option lists, normalizing the case
// where both a blacklist and a whitelist are requested: the whitelist
// wins and the blacklist is discarded. includeMode forces whitelist
// mode even when includeTags is empty.
func New(omitTags, includeTags []string, includeMode bool) FilterConfig {
	if len(includeTags) > 0 || includeMode {
		return IncludeOnly(includeTags)
	}
	if len(omitTags) > 0 {
		return Omit(omitTags)
	}
	return Default()
}

// WithStrip returns a copy that additionally unwraps the named tags:
// their markers are deleted wherever they occur while the enclosed text
// stays in place. The strip pass runs after either filter mode.
func (c FilterConfig) WithStrip(tags []string) FilterConfig {
	set := lowerSet(tags)
	c.strip = make([]string, 0, len(set))
	for t := range set {
		c.strip = append(c.strip, t)
	}
	sort.Strings(c.strip)
	return c
}

// Mode reports the active filter mode.
func (c FilterConfig) Mode() Mode { return c.mode }

// IncludedTags returns the whitelist sorted, empty outside whitelist
// mode.
func (c FilterConfig) IncludedTags() []string {
	tags := make([]string, 0, len(c.include))
	for t := range c.include {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// allows reports whether a pseudo section (untagged content, first
// message) belongs in the output: whitelist mode requires an explicit
// entry, otherwise anything not blacklisted is allowed.
func (c FilterConfig) allows(pseudo string) bool {
	if c.mode == ModeIncludeOnly {
		return c.include[pseudo]
	}
	return !c.omit[pseudo]
}

// Apply runs the active filter transformation over one extracted
// fragment tagged with its own name, then the strip pass, then newline
// normalization and trimming. Applying the same configuration to its
// own output changes nothing.
func (c FilterConfig) Apply(frag, selfName string) string {
	self := strings.ToLower(strings.TrimSpace(selfName))

	switch c.mode {
	case ModeOmit:
		if c.omit[self] {
			frag = ""
			break
		}
		for _, name := range tagscan.PresentNames(frag) {
			if c.omit[name] {
				frag = tagscan.RemoveBlocks(frag, name)
			}
		}

	case ModeIncludeOnly:
		if !c.include[self] {
			frag = ""
			break
		}
		present := tagscan.PresentNames(frag)
		for _, name := range present {
			if !c.include[name] {
				frag = tagscan.RemoveBlocks(frag, name)
			}
		}
		// Isolation: a tag requested as its own top-level section
		// must not also surface inside a sibling section.
		for _, name := range present {
			if c.include[name] && name != self {
				frag = tagscan.RemoveBlocks(frag, name)
			}
		}
	}

	for _, name := range c.strip {
		frag = tagscan.StripMarkers(frag, name)
	}

	return strings.TrimSpace(chatlog.NormalizeNewlines(frag))
}

func lowerSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = true
		}
	}
	return set
}
