// Package sheet turns a chat-log document's system prompt into a clean
// character sheet: it locates the character tag among decoy wrappers,
// extracts the character, scenario, and any other requested blocks,
// filters them per the configured rules, and composes the surviving
// fragments into output text.
package sheet

import (
	"regexp"
	"sort"
	"strings"

	"github.com/johns/charlog/internal/chatlog"
	"github.com/johns/charlog/internal/tagscan"
)

// DefaultSkipForName lists tag names that are never the character tag.
// These are not removals; they only steer name detection past common
// wrapper tags.
func DefaultSkipForName() []string {
	return []string{"system", "scenario", "example_dialogs", "persona", "userpersona"}
}

// personaSuffix matches names like "Luna's Persona", tolerating the
// typographic apostrophe variants seen in logged prompts.
var personaSuffix = regexp.MustCompile(`(?i)^(.+?)['` + "’ʼʻʽ" + `]s\s+persona$`)

// NormalizeCharacterName strips a trailing "'s persona" suffix from a
// detected tag name, returning the bare character name.
func NormalizeCharacterName(name string) string {
	if m := personaSuffix.FindStringSubmatch(name); m != nil {
		return strings.TrimSpace(m[1])
	}
	return name
}

// fallbackName is used when no character tag is detectable.
const fallbackName = "character"

// Result is the outcome of parsing one document. Skipped marks
// malformed input (missing messages, or a non-system first message);
// it is informational, not an error, and produces no output text.
type Result struct {
	Name    string
	Text    string
	Skipped bool
	Reason  string
}

// Parse extracts a character sheet from one chat-log document under the
// given filter rules. skipForName lists tag names ignored during
// character-tag detection; nil means DefaultSkipForName. The returned
// text is fully composed and ends with exactly one line break.
func Parse(p *chatlog.Payload, cfg FilterConfig, skipForName []string) *Result {
	system, reason, ok := p.SystemContent()
	if !ok {
		return &Result{Skipped: true, Reason: reason}
	}
	system = chatlog.NormalizeNewlines(system)

	skip := make(map[string]bool)
	if skipForName == nil {
		skipForName = DefaultSkipForName()
	}
	for _, t := range skipForName {
		skip[strings.ToLower(strings.TrimSpace(t))] = true
	}

	// Character block.
	name := fallbackName
	hasCharBlock := false
	var charContent string
	var charContentStart, charBlockEnd int
	if tagName, _, openEnd, found := tagscan.Locate(system, skip); found {
		hasCharBlock = true
		charContentStart = openEnd
		charContent, charBlockEnd = tagscan.Extract(system, tagName, openEnd)
		name = NormalizeCharacterName(tagName)
	}
	character := ""
	if hasCharBlock {
		character = cfg.Apply(charContent, name)
	}

	// Scenario, unless it already sits inside the character block.
	scenario := ""
	if scStart, scEnd, found := tagscan.FindOpen(system, "scenario", 0); found {
		inside := hasCharBlock && charContentStart <= scStart && scStart < charBlockEnd
		if !inside {
			inner, _ := tagscan.Extract(system, "scenario", scEnd)
			scenario = cfg.Apply(inner, "scenario")
		}
	}

	untagged := ""
	if cfg.allows(pseudoUntagged) {
		untagged = untaggedContent(system)
	}

	others := otherSections(system, cfg, name)

	firstMessage := ""
	if cfg.allows(pseudoFirstMessage) {
		if msg, found := p.FirstAssistantMessage(); found {
			firstMessage = msg
		}
	}

	sections := make([]string, 0, 4+len(others))
	sections = append(sections, untagged, character)
	sections = append(sections, others...)
	sections = append(sections, scenario)
	text := Compose(sections, firstMessage)

	return &Result{Name: name, Text: text}
}

// untaggedContent removes every recognized tag block from the system
// prompt, sweeps up leftover bare markers, and returns what remains.
func untaggedContent(system string) string {
	stripped := system
	for _, name := range tagscan.PresentNames(system) {
		stripped = tagscan.RemoveBlocks(stripped, name)
	}
	stripped = tagscan.StripGenericMarkers(stripped)
	return strings.TrimSpace(chatlog.NormalizeNewlines(stripped))
}

// otherSections extracts every whitelisted tag beyond the character
// tag, "scenario", and the first-message pseudo tag, ordered by first
// appearance in the document. Each occurrence is filtered with the
// isolation rule applied relative to its own tag name.
func otherSections(system string, cfg FilterConfig, charName string) []string {
	if cfg.Mode() != ModeIncludeOnly {
		return nil
	}
	charLower := strings.ToLower(strings.TrimSpace(charName))

	type candidate struct {
		tag string
		pos int
	}
	var candidates []candidate
	for _, tag := range cfg.IncludedTags() {
		if tag == charLower || tag == "scenario" || tag == pseudoFirstMessage {
			continue
		}
		if start, _, found := tagscan.FindOpen(system, tag, 0); found {
			candidates = append(candidates, candidate{tag: tag, pos: start})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].pos < candidates[j].pos })

	var sections []string
	for _, c := range candidates {
		for _, inner := range tagscan.ExtractAll(system, c.tag, cfg.ResumeAfterBlock) {
			if filtered := cfg.Apply(inner, c.tag); filtered != "" {
				sections = append(sections, filtered)
			}
		}
	}
	return sections
}

// firstMessageHeader precedes the opening message in composed output.
const firstMessageHeader = "First Message"

// Compose joins the non-empty sections with exactly one blank line
// between neighbors, appends the first message under its header, trims
// trailing whitespace, and terminates with a single line break. Empty
// sections contribute nothing.
func Compose(sections []string, firstMessage string) string {
	var parts []string
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if firstMessage != "" {
		parts = append(parts, firstMessageHeader+"\n\n"+firstMessage)
	}
	return strings.TrimRight(strings.Join(parts, "\n\n"), " \t\r\n") + "\n"
}
