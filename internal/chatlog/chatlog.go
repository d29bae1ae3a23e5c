// Package chatlog models the chat-log documents the proxy saves: a JSON
// object with a messages array whose first entry carries the system
// prompt.
package chatlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/johns/charlog/internal/tagscan"
)

// Message is one conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Payload is the decoded chat-log document.
type Payload struct {
	Messages []Message `json:"messages"`
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Decode parses a chat-log JSON document. A UTF-8 byte-order mark is
// tolerated; anything that is not a JSON object fails.
func Decode(data []byte) (*Payload, error) {
	data = bytes.TrimPrefix(data, bom)
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode chat log: %w", err)
	}
	return &p, nil
}

// DecodeFile reads and decodes a chat-log JSON file.
func DecodeFile(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chat log: %w", err)
	}
	return Decode(data)
}

// SystemContent returns the system-prompt text, requiring a non-empty
// messages array whose first entry has role "system". The ok result is
// false when the document is malformed; reason says why.
func (p *Payload) SystemContent() (content string, reason string, ok bool) {
	if len(p.Messages) == 0 {
		return "", "no messages array", false
	}
	if p.Messages[0].Role != "system" {
		return "", "first message is not 'system'", false
	}
	return p.Messages[0].Content, "", true
}

// FirstAssistantMessage returns the content of the first assistant
// message whose trimmed content is non-empty, with literal newline
// escapes normalized. Blank assistant messages are skipped.
func (p *Payload) FirstAssistantMessage() (string, bool) {
	for _, m := range p.Messages {
		if m.Role != "assistant" {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		return NormalizeNewlines(m.Content), true
	}
	return "", false
}

// NormalizeNewlines converts every two-character \n escape sequence
// into an actual line break. Logged prompts frequently arrive with the
// escapes still literal.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

// UntaggedName is the pseudo tag name reported when text survives
// outside every recognized tag block.
const UntaggedName = "Untagged Content"

// TagInventory lists the lower-cased tag names present in the
// document's system prompt, sorted case-insensitively. When text
// remains outside all tag blocks the pseudo name UntaggedName is
// included.
func (p *Payload) TagInventory() []string {
	content, _, ok := p.SystemContent()
	if !ok {
		return nil
	}
	content = NormalizeNewlines(content)

	seen := make(map[string]bool)
	var names []string
	for _, lower := range tagscan.PresentNames(content) {
		if !seen[lower] {
			seen[lower] = true
			names = append(names, lower)
		}
	}

	stripped := content
	for _, nm := range names {
		stripped = tagscan.RemoveBlocks(stripped, nm)
	}
	stripped = tagscan.StripGenericMarkers(stripped)
	if strings.TrimSpace(stripped) != "" {
		names = append(names, UntaggedName)
	}

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}
