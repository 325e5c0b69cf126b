package document

import (
	"fmt"
	"strings"

	"github.com/starford/skald/internal/apperr"
)

const headingPrefix = "## "

// Section is one titled block of a document body.
type Section struct {
	Title   string
	Content string
	Line    int // 1-based line of the heading within the body
}

// Sections splits a body into its titled sections. Text before the first
// heading is not part of any section.
func Sections(body string) []Section {
	lines := strings.Split(body, "\n")
	var out []Section
	var cur *Section
	var content []string

	flush := func() {
		if cur != nil {
			cur.Content = strings.Trim(strings.Join(content, "\n"), "\n")
			out = append(out, *cur)
		}
	}
	for i, line := range lines {
		if strings.HasPrefix(line, headingPrefix) {
			flush()
			cur = &Section{Title: strings.TrimSpace(line[len(headingPrefix):]), Line: i + 1}
			content = content[:0]
			continue
		}
		if cur != nil {
			content = append(content, line)
		}
	}
	flush()
	return out
}

// Placement selects which side of the anchor heading a new section lands on.
type Placement int

const (
	// PlaceAfter inserts the new section after the anchor's content.
	PlaceAfter Placement = iota
	// PlaceBefore inserts the new section before the anchor heading.
	PlaceBefore
)

// Anchor identifies the insertion point for a new section by exact heading
// text. The zero Anchor means "append at end of body".
type Anchor struct {
	Heading string
	Place   Placement
}

// InsertSection adds a new titled section to body at the anchor position. An
// anchor matching more than one heading is an AmbiguousAnchorError listing
// every match; an anchor matching none wraps ErrNotFound. The body is never
// partially modified on error.
func InsertSection(body, title, content string, anchor Anchor) (string, error) {
	block := headingPrefix + title + "\n\n" + strings.TrimRight(content, "\n") + "\n"

	if anchor.Heading == "" {
		if strings.TrimSpace(body) == "" {
			return block, nil
		}
		return strings.TrimRight(body, "\n") + "\n\n" + block, nil
	}

	secs := Sections(body)
	var matches []Section
	for _, s := range secs {
		if s.Title == anchor.Heading {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("document: anchor heading %q: %w", anchor.Heading, apperr.ErrNotFound)
	case 1:
	default:
		lineNums := make([]int, len(matches))
		for i, m := range matches {
			lineNums[i] = m.Line
		}
		return "", &apperr.AmbiguousAnchorError{Heading: anchor.Heading, Lines: lineNums}
	}

	lines := strings.Split(body, "\n")
	match := matches[0]
	insertAt := len(lines)
	if anchor.Place == PlaceBefore {
		insertAt = match.Line - 1
	} else {
		for _, s := range secs {
			if s.Line > match.Line {
				insertAt = s.Line - 1
				break
			}
		}
	}

	head := strings.Join(lines[:insertAt], "\n")
	tail := strings.Join(lines[insertAt:], "\n")

	var b strings.Builder
	if strings.TrimSpace(head) != "" {
		b.WriteString(strings.TrimRight(head, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString(block)
	if strings.TrimSpace(tail) != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimLeft(tail, "\n"))
	}
	return b.String(), nil
}
