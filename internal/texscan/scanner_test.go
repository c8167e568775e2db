package texscan

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestScan_SingleFile(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\documentclass{article}
\begin{document}
As shown by \cite{smith2020}, things happen.
\end{document}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := occs["smith2020"]
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(got))
	}
	if got[0].Line != 3 {
		t.Errorf("expected line 3, got %d", got[0].Line)
	}
	if !strings.Contains(got[0].Snippet, `\cite{smith2020}`) {
		t.Errorf("snippet missing citation: %q", got[0].Snippet)
	}
}

func TestScan_MultiKeyColumns(t *testing.T) {
	dir := t.TempDir()
	line := `See \cite{aa, bb,cc}.`
	root := writeFile(t, dir, "main.tex", line+"\n")

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	// Columns are 1-based positions of each key's first non-space character.
	wantCols := map[string]int{
		"aa": strings.Index(line, "aa") + 1,
		"bb": strings.Index(line, "bb") + 1,
		"cc": strings.Index(line, "cc") + 1,
	}
	for key, wantCol := range wantCols {
		got := occs[key]
		if len(got) != 1 {
			t.Fatalf("key %s: expected 1 occurrence, got %d", key, len(got))
		}
		if got[0].Column != wantCol {
			t.Errorf("key %s: expected column %d, got %d", key, wantCol, got[0].Column)
		}
	}
}

func TestScan_MultibyteColumnsAreRuneBased(t *testing.T) {
	dir := t.TempDir()
	// "é" is two bytes but one rune; the column must count runes.
	line := `Héllo wörld \cite{key}.`
	root := writeFile(t, dir, "main.tex", line+"\n")

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := occs["key"]
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(got))
	}
	wantCol := len([]rune(`Héllo wörld \cite{`)) + 1
	if got[0].Column != wantCol {
		t.Errorf("expected rune-based column %d, got %d", wantCol, got[0].Column)
	}
}

func TestScan_FollowsIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "intro.tex", `Intro cites \cite{alpha}.`+"\n")
	writeFile(t, dir, "body.tex", `Body cites \citep[p.~3]{beta}.`+"\n")
	root := writeFile(t, dir, "main.tex", `\input{intro}
\include{body}
Main cites \cite{gamma}.
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, key := range []string{"alpha", "beta", "gamma"} {
		if len(occs[key]) != 1 {
			t.Errorf("key %s: expected 1 occurrence, got %d", key, len(occs[key]))
		}
	}
	if got := occs["alpha"][0].File; got != filepath.Join(dir, "intro.tex") {
		t.Errorf("unexpected file for alpha: %s", got)
	}
}

func TestScan_CommentedIncludeIsStillFollowed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.tex", `\cite{hidden}`+"\n")
	root := writeFile(t, dir, "main.tex", `% \input{extra}
\cite{seen}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["hidden"]) != 1 {
		t.Errorf("commented-out include should still be followed, got %d occurrences", len(occs["hidden"]))
	}
}

func TestScan_CommentedCitationIsIgnored(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\cite{before} % \cite{after}
% \cite{whole}
Fifty \% done \cite{escaped}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["before"]) != 1 {
		t.Errorf("citation before comment should count")
	}
	if len(occs["after"]) != 0 {
		t.Errorf("citation inside comment should not count")
	}
	if len(occs["whole"]) != 0 {
		t.Errorf("citation on fully commented line should not count")
	}
	if len(occs["escaped"]) != 1 {
		t.Errorf("escaped percent does not start a comment")
	}
}

func TestScan_VerbatimBlocksAreSkipped(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\begin{verbatim}
\cite{invisible}
\end{verbatim}
\cite{visible}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["invisible"]) != 0 {
		t.Errorf("citation inside verbatim should not count")
	}
	if len(occs["visible"]) != 1 {
		t.Errorf("citation after verbatim should count")
	}
}

func TestScan_MismatchedEndKeepsBlockOpen(t *testing.T) {
	dir := t.TempDir()
	// \end{lstlisting} does not close a verbatim block; everything stays
	// hidden until the matching \end{verbatim}.
	root := writeFile(t, dir, "main.tex", `\begin{verbatim}
\end{lstlisting}
\cite{still_hidden}
\end{verbatim}
\cite{shown}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["still_hidden"]) != 0 {
		t.Errorf("mismatched end marker must not close the block")
	}
	if len(occs["shown"]) != 1 {
		t.Errorf("citation after matching end should count")
	}
}

func TestScan_IffalseRegionsAreSkipped(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\iffalse
\cite{dead}
\fi
\cite{live}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["dead"]) != 0 {
		t.Errorf("citation inside iffalse should not count")
	}
	if len(occs["live"]) != 1 {
		t.Errorf("citation after fi should count")
	}
}

func TestScan_CircularIncludesTerminate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.tex", `\input{b}`+"\n"+`\cite{froma}`+"\n")
	writeFile(t, dir, "b.tex", `\input{a}`+"\n"+`\cite{fromb}`+"\n")

	occs, err := Scan(filepath.Join(dir, "a.tex"), testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(occs["froma"]) != 1 || len(occs["fromb"]) != 1 {
		t.Errorf("each file should be scanned exactly once: froma=%d fromb=%d",
			len(occs["froma"]), len(occs["fromb"]))
	}
}

func TestScan_MissingIncludeIsSkipped(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\input{nothere}
\cite{ok}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan should tolerate a missing include: %v", err)
	}
	if len(occs["ok"]) != 1 {
		t.Errorf("scan should continue past missing includes")
	}
}

func TestScan_MissingRootFails(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "absent.tex"), testLogger()); err == nil {
		t.Fatalf("expected an error for a missing root file")
	}
}

func TestScan_LongLineSnippetIsCapped(t *testing.T) {
	dir := t.TempDir()
	long := strings.Repeat("x", 300) + ` \cite{key}`
	root := writeFile(t, dir, "main.tex", long+"\n")

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	got := occs["key"]
	if len(got) != 1 {
		t.Fatalf("expected 1 occurrence, got %d", len(got))
	}
	runes := []rune(got[0].Snippet)
	if len(runes) != snippetMax+1 || runes[len(runes)-1] != '…' {
		t.Errorf("expected %d runes plus ellipsis, got %d", snippetMax, len(runes))
	}
}

func TestScan_StarredAndBracketedVariants(t *testing.T) {
	dir := t.TempDir()
	root := writeFile(t, dir, "main.tex", `\citep*[see][p.~7]{one}
\textcite{two}
\Citeauthor{three}
\autocite[42]{four}
`)

	occs, err := Scan(root, testLogger())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, key := range []string{"one", "two", "three", "four"} {
		if len(occs[key]) != 1 {
			t.Errorf("key %s: expected 1 occurrence, got %d", key, len(occs[key]))
		}
	}
}
