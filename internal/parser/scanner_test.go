package parser

import (
	"errors"
	"strings"
	"testing"
)

func mustScan(t *testing.T, cfg ScanConfig, input string) []blockView {
	t.Helper()
	s, err := NewScanner(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks, err := s.Scan(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := make([]blockView, len(blocks))
	for i, b := range blocks {
		out[i] = blockView{b.Kind, b.ID, b.Title, b.Content, b.Line}
	}
	return out
}

type blockView struct {
	kind, id, title, content string
	line                     int
}

func TestScan_DirectivesWithQuotedBodies(t *testing.T) {
	input := `
DEFINITION[3] subnormality

LEMMA[id5] Schur's lemma
> Hallo

THEOREM Schur's theorem
>
>
>
> ciao
`
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	want := []blockView{
		{"DEFINITION", "3", "subnormality", "", 2},
		{"LEMMA", "id5", "Schur's lemma", "Hallo", 4},
		{"THEOREM", "", "Schur's theorem", "ciao", 7},
	}
	for i, w := range want {
		if blocks[i] != w {
			t.Errorf("block[%d]: expected %+v, got %+v", i, w, blocks[i])
		}
	}
}

func TestScan_HeaderAndMultilineProof(t *testing.T) {
	input := "\n\n# oh junge\n\nPROOF     \n> Hallo Welt\n> \n> \\begin{align*}\n>     \\text{verrückter Trick} = 5 \\cdot x\n> \\end{align*}\n\n\n"
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].kind != "#" || blocks[0].title != "oh junge" {
		t.Errorf("expected header '#' titled %q, got %+v", "oh junge", blocks[0])
	}
	proof := blocks[1]
	if proof.kind != "PROOF" || proof.title != "" || proof.id != "" {
		t.Errorf("expected bare PROOF, got %+v", proof)
	}
	want := "Hallo Welt\n\n\\begin{align*}\n    \\text{verrückter Trick} = 5 \\cdot x\n\\end{align*}"
	if proof.content != want {
		t.Errorf("expected content %q, got %q", want, proof.content)
	}
}

func TestScan_AdjacentBlocksWithoutBlankLines(t *testing.T) {
	input := `
# Ciao monde
THEOREM[1]
>

PROPOSITION
>
>hahaha
LEMMA[2]
>
### Hallo welt
EXAMPLE
>
`
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 6 {
		t.Fatalf("expected 6 blocks, got %d", len(blocks))
	}
	kinds := []string{"#", "THEOREM", "PROPOSITION", "LEMMA", "###", "EXAMPLE"}
	for i, k := range kinds {
		if blocks[i].kind != k {
			t.Errorf("block[%d]: expected kind %q, got %q", i, k, blocks[i].kind)
		}
	}
	if blocks[2].content != "hahaha" {
		t.Errorf("expected marker stripped without separator, got %q", blocks[2].content)
	}
	if blocks[5].content != "" {
		t.Errorf("expected empty content, got %q", blocks[5].content)
	}
}

func TestScan_ParagraphsKeepLines(t *testing.T) {
	input := `
# Review of basic measure theory

Let $(X,d)$ be a locally compact and separable metric space.
A measure $\mu \colon X \to \mathbb{R}^p$ is a countably additive mapping, i.e.
\[
    \mu(B) = \sum_{i \in \mathbb{N}} \mu(B_i)
\]
for a disjoint union $B = \bigsqcup_{i \in \mathbb{N}} B_i$.
`
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[1].kind != "" {
		t.Errorf("expected paragraph, got kind %q", blocks[1].kind)
	}
	if n := strings.Count(blocks[1].content, "\n"); n != 5 {
		t.Errorf("expected 5 newlines in paragraph, got %d", n)
	}
	if blocks[1].line != 4 {
		t.Errorf("expected paragraph on line 4, got %d", blocks[1].line)
	}
}

func TestScan_DirectiveAtEndOfInput(t *testing.T) {
	blocks := mustScan(t, DefaultScanConfig(), "\nTHEOREM")
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].content != "" {
		t.Errorf("expected empty content, got %q", blocks[0].content)
	}
}

func TestScan_ParagraphsSplitOnBlankLines(t *testing.T) {
	input := `## Rectifiable sets

Throughout this section we consider $\mathbb{R}^d$.

A set $E$ is called **countably $k$-rectifiable** if there
exists a countable family.
`
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].kind != "##" || blocks[1].kind != "" || blocks[2].kind != "" {
		t.Errorf("expected ##, paragraph, paragraph; got %q %q %q", blocks[0].kind, blocks[1].kind, blocks[2].kind)
	}
}

func TestScan_BlankOnlyInput(t *testing.T) {
	inputs := []string{"", "\n", "   \n\t\n", "\r\n\r\n"}
	for _, in := range inputs {
		if blocks := mustScan(t, DefaultScanConfig(), in); len(blocks) != 0 {
			t.Errorf("input %q: expected no blocks, got %d", in, len(blocks))
		}
	}
}

func TestScan_NonDirectiveLookalikes(t *testing.T) {
	input := "LEMMAS are useful\n\nLEMMA[Bad] x\n\nlemma lower"
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.kind != "" {
			t.Errorf("block[%d]: expected paragraph, got kind %q", i, b.kind)
		}
	}
}

func TestScan_ContinuationLinesAreNotReinterpreted(t *testing.T) {
	input := "LEMMA[outer]\n> THEOREM[inner] nested\n> # not a header"
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].content != "THEOREM[inner] nested\n# not a header" {
		t.Errorf("unexpected content %q", blocks[0].content)
	}
}

func TestScan_CRLFInput(t *testing.T) {
	input := "LEMMA[a] Name\r\n> one\r\n> two\r\n"
	blocks := mustScan(t, DefaultScanConfig(), input)
	if len(blocks) != 1 || blocks[0].content != "one\ntwo" {
		t.Fatalf("expected one lemma with content %q, got %+v", "one\ntwo", blocks)
	}
}

func TestScan_VocabularyOrderPrefersFullMatch(t *testing.T) {
	cfg := DefaultScanConfig()
	cfg.Directives = []string{"THM", "THMX"}
	blocks := mustScan(t, cfg, "THMX[a] both\n\nTHM[b]")
	if len(blocks) != 2 || blocks[0].kind != "THMX" || blocks[1].kind != "THM" {
		t.Fatalf("expected THMX then THM, got %+v", blocks)
	}
}

func TestScan_Classes(t *testing.T) {
	cfg := DefaultScanConfig()
	cfg.Classes = map[string][]string{
		"statement": {"LEMMA", "THEOREM"},
		"numbered":  {"LEMMA", "##"},
	}
	s, err := NewScanner(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	blocks, err := s.Scan("## Sec\n\nLEMMA\n\nPROOF\n\ntext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(blocks[1].Classes, ","); got != "numbered,statement" {
		t.Errorf("expected lemma classes numbered,statement; got %q", got)
	}
	if !blocks[0].Is("numbered") || blocks[0].Is("statement") {
		t.Errorf("unexpected header classes %v", blocks[0].Classes)
	}
	if len(blocks[2].Classes) != 0 || len(blocks[3].Classes) != 0 {
		t.Errorf("expected no classes for proof and paragraph")
	}
}

func terminatorConfig() ScanConfig {
	cfg := DefaultScanConfig()
	cfg.Directives = []string{"DEFN", "LEMMA", "PROP", "THM", "CORL", "EXM", "EXC", "PROOF"}
	cfg.Continuation = ContinuationTerminator
	return cfg
}

func TestScan_TerminatorMode(t *testing.T) {
	input := `
DEFN[3] subnormality

 END

LEMMA[id5] Schur's lemma
a  END

THM Schur's theorem
b END
`
	blocks := mustScan(t, terminatorConfig(), input)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].kind != "DEFN" || blocks[0].content != "\n " {
		t.Errorf("unexpected first block %+v", blocks[0])
	}
	if blocks[1].id != "id5" || blocks[1].content != "a  " {
		t.Errorf("unexpected second block %+v", blocks[1])
	}
	if blocks[2].kind != "THM" || blocks[2].id != "" || blocks[2].content != "b " {
		t.Errorf("unexpected third block %+v", blocks[2])
	}
}

func TestScan_TerminatorKeepsWhitespace(t *testing.T) {
	blocks := mustScan(t, terminatorConfig(), "LEMMA[id5] Schur\na  END\n\nEXM\n END\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].content != "a  " {
		t.Errorf("expected lemma content %q, got %q", "a  ", blocks[0].content)
	}
	if blocks[1].content != " " {
		t.Errorf("expected example content %q, got %q", " ", blocks[1].content)
	}
}

func TestScan_TerminatorMultiline(t *testing.T) {
	input := "\n\n# oh junge\n\nPROOF     \nHallo Welt\n\n\\begin{align*}\n    x = 5\n\\end{align*} END\n\n\n"
	blocks := mustScan(t, terminatorConfig(), input)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if n := strings.Count(blocks[1].content, "\n"); n != 4 {
		t.Errorf("expected 4 newlines in proof, got %d (%q)", n, blocks[1].content)
	}
}

func TestScan_TerminatorMissing(t *testing.T) {
	s, err := NewScanner(terminatorConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = s.Scan("# Head\n\nPROOF\nsome text\nnever closed\n")
	var malformed *MalformedDirectiveError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedDirectiveError, got %v", err)
	}
	if malformed.Line != 3 || malformed.Kind != "PROOF" {
		t.Errorf("expected PROOF on line 3, got %s on line %d", malformed.Kind, malformed.Line)
	}
}

func TestNewScanner_RejectsBadConfig(t *testing.T) {
	cfg := DefaultScanConfig()
	cfg.Continuation = "fenced"
	if _, err := NewScanner(cfg); err == nil {
		t.Error("expected error for unknown continuation mode")
	}

	cfg = DefaultScanConfig()
	cfg.Directives = []string{"LEMMA", " "}
	if _, err := NewScanner(cfg); err == nil {
		t.Error("expected error for blank directive name")
	}
}
