package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/skald/internal/apperr"
)

func TestSections_Split(t *testing.T) {
	body := "intro text\n\n## Summary\n\nDid things.\n\n## Decisions\n\nChose sqlite.\n"
	secs := Sections(body)
	if len(secs) != 2 {
		t.Fatalf("len(secs) = %d, want 2", len(secs))
	}
	if secs[0].Title != "Summary" || secs[0].Content != "Did things." {
		t.Errorf("first section = %+v", secs[0])
	}
	if secs[1].Title != "Decisions" || secs[1].Line != 7 {
		t.Errorf("second section = %+v", secs[1])
	}
}

func TestInsertSection_AppendAtEnd(t *testing.T) {
	body := "## Summary\n\nDid things.\n"
	out, err := InsertSection(body, "Next Steps", "Write tests.", Anchor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "## Summary\n\nDid things.\n\n## Next Steps\n\nWrite tests.\n"
	if out != want {
		t.Errorf("body = %q, want %q", out, want)
	}
}

func TestInsertSection_IntoEmptyBody(t *testing.T) {
	out, err := InsertSection("", "Summary", "First entry.", Anchor{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "## Summary\n\nFirst entry.\n" {
		t.Errorf("body = %q", out)
	}
}

func TestInsertSection_AfterAnchor(t *testing.T) {
	body := "## Summary\n\nDid things.\n\n## Decisions\n\nChose sqlite.\n"
	out, err := InsertSection(body, "Blockers", "None.", Anchor{Heading: "Summary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secs := Sections(out)
	var titles []string
	for _, s := range secs {
		titles = append(titles, s.Title)
	}
	want := "Summary,Blockers,Decisions"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
}

func TestInsertSection_BeforeAnchor(t *testing.T) {
	body := "## Summary\n\nDid things.\n\n## Decisions\n\nChose sqlite.\n"
	out, err := InsertSection(body, "Context", "Background.", Anchor{Heading: "Decisions", Place: PlaceBefore})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secs := Sections(out)
	if len(secs) != 3 || secs[1].Title != "Context" {
		t.Errorf("sections = %+v", secs)
	}
}

func TestInsertSection_AnchorNotFound(t *testing.T) {
	_, err := InsertSection("## Summary\n", "X", "y", Anchor{Heading: "Missing"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertSection_AmbiguousAnchor(t *testing.T) {
	body := "## Notes\n\none\n\n## Notes\n\ntwo\n"
	_, err := InsertSection(body, "X", "y", Anchor{Heading: "Notes"})
	var ae *apperr.AmbiguousAnchorError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousAnchorError, got %v", err)
	}
	if len(ae.Lines) != 2 {
		t.Errorf("lines = %v, want 2 matches", ae.Lines)
	}
	if ae.Lines[0] != 1 || ae.Lines[1] != 5 {
		t.Errorf("lines = %v, want [1 5]", ae.Lines)
	}
}
