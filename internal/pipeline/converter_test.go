package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/notemark/internal/config"
	"github.com/dgallion1/notemark/internal/numbering"
	"github.com/dgallion1/notemark/internal/parser"
)

const sampleDoc = `# Measure theory

Let $(X,d)$ be a *metric* space.

## Outer measures

DEFINITION[outer] Outer measure
> A map $\mu \colon 2^X \to [0,\infty]$ with $\mu(\emptyset) = 0$.

LEMMA[sub] Subadditivity
> Every <@outer> is countably subadditive.

PROOF
> Follows from <@sub|the lemma above> and <@nowhere>.
`

func newTestConverter(t *testing.T, m config.Markup) *Converter {
	t.Helper()
	c, err := NewConverter(m, NewRenderStats(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestConverter_Convert(t *testing.T) {
	c := newTestConverter(t, config.DefaultMarkup())
	res, err := c.Convert(context.Background(), "measure.mmd", sampleDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Document.Title != "Measure theory" {
		t.Errorf("expected title %q, got %q", "Measure theory", res.Document.Title)
	}
	if len(res.Blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(res.Blocks))
	}
	def, lemma, proof := res.Blocks[3], res.Blocks[4], res.Blocks[5]
	if def.Number.Dotted() != "1.1" || lemma.Number.Dotted() != "1.2" {
		t.Errorf("expected numbers 1.1 and 1.2, got %s and %s", def.Number.Dotted(), lemma.Number.Dotted())
	}
	if !strings.Contains(string(def.HTML), `$\mu \colon 2^X \to [0,\infty]$`) {
		t.Errorf("expected math to survive rendering, got %q", def.HTML)
	}
	if !strings.Contains(string(lemma.HTML), `<a href="#outer">Definition 1.1</a>`) {
		t.Errorf("expected resolved reference, got %q", lemma.HTML)
	}
	if !strings.Contains(string(proof.HTML), `<a href="#sub">the lemma above</a>`) {
		t.Errorf("expected named reference, got %q", proof.HTML)
	}
	if !strings.Contains(string(proof.HTML), "reference nowhere not found") {
		t.Errorf("expected inline error for unknown target, got %q", proof.HTML)
	}

	for _, want := range []string{
		"<title>Measure theory</title>",
		`<meta name="description" content="Let $(X,d)$ be a metric space.">`,
		`id="outer"`,
		"<strong>Definition 1.1</strong> (Outer measure)",
	} {
		if !strings.Contains(res.HTML, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}

	if snap := c.stats.Snapshot(); snap.Count != 1 || snap.Blocks != 6 {
		t.Errorf("expected one recorded conversion of 6 blocks, got %+v", snap)
	}
}

func TestConverter_TitleFallsBackToName(t *testing.T) {
	c := newTestConverter(t, config.DefaultMarkup())
	res, err := c.Convert(context.Background(), "notes/chapter-2.mmd", "just text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Document.Title != "chapter-2" {
		t.Errorf("expected title from file name, got %q", res.Document.Title)
	}
}

func TestConverter_Text(t *testing.T) {
	c := newTestConverter(t, config.DefaultMarkup())
	res, err := c.Convert(context.Background(), "t.mmd", "## Head\n\nsome **bold** words\n\nREMARK\n> a $x$ b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := res.Text()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Head\n\nsome bold words\n\na $x$ b"
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestConverter_IndependentConversions(t *testing.T) {
	c := newTestConverter(t, config.DefaultMarkup())
	ctx := context.Background()
	first, err := c.Convert(ctx, "a.mmd", sampleDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Convert(ctx, "a.mmd", sampleDoc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.HTML != second.HTML {
		t.Error("expected identical output for identical input")
	}
}

func TestConverter_Errors(t *testing.T) {
	bad := config.DefaultMarkup()
	bad.Numbering = append(bad.Numbering, numbering.Node{Kinds: []string{"LEMMA"}})
	if _, err := NewConverter(bad, nil); err == nil {
		t.Error("expected error for ambiguous numbering")
	}

	m := config.DefaultMarkup()
	m.Continuation = "terminator"
	c := newTestConverter(t, m)
	var malformed *parser.MalformedDirectiveError
	if _, err := c.Convert(context.Background(), "open.mmd", "LEMMA\nnever closed"); !errors.As(err, &malformed) {
		t.Errorf("expected MalformedDirectiveError, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Convert(ctx, "x.mmd", "text"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestConverter_Check(t *testing.T) {
	c := newTestConverter(t, config.DefaultMarkup())
	input := "LEMMA[a]\n> x\n\nTHEOREM[a]\n> see <@a> and <@b>\n\nREMARK[c]\n> <@c|self> <@d>"
	report, err := c.Check(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK() {
		t.Fatal("expected problems to be reported")
	}
	if report.Blocks != 3 {
		t.Errorf("expected 3 blocks, got %d", report.Blocks)
	}
	if len(report.DuplicateIDs) != 1 || report.DuplicateIDs[0] != "a" {
		t.Errorf("expected duplicate id a, got %v", report.DuplicateIDs)
	}
	if len(report.UnknownRefs) != 2 {
		t.Fatalf("expected 2 unknown refs, got %v", report.UnknownRefs)
	}
	if got := report.UnknownRefs[0]; got.Target != "b" || got.Line != 4 || got.Block != 1 {
		t.Errorf("unexpected first unknown ref %+v", got)
	}
	if got := report.UnknownRefs[1].String(); got != `line 7: reference to undefined id "d"` {
		t.Errorf("unexpected message %q", got)
	}

	clean, err := c.Check("LEMMA[a]\n> x\n\nREMARK\n> <@a>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !clean.OK() {
		t.Errorf("expected clean report, got %+v", clean)
	}
}
