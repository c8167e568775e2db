// Package collect joins the bibliography records, scanned occurrences,
// resolved PDF locations and sequence numbers into the display cards the
// dashboard renders, with a fully deterministic total order.
package collect

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/refmap/internal/bibtex"
	"github.com/dgallion1/refmap/internal/detex"
	"github.com/dgallion1/refmap/internal/texscan"
)

// Card is one display record for a cited bibliography entry. Cards are
// immutable once built.
type Card struct {
	Key                 string       `json:"key"`
	Title               string       `json:"title"`
	Authors             []string     `json:"authors"`
	Year                *int         `json:"year"`
	DOI                 *string      `json:"doi"`
	URL                 *string      `json:"url"`
	Abstract            string       `json:"abstract"`
	Occurrences         []Occurrence `json:"occurrences"`
	FirstOccurrenceRank int64        `json:"firstOccurrenceRank"`
	SequenceNumber      int          `json:"sequenceNumber"`
	BibSourceOrderIndex int          `json:"bibSourceOrderIndex"`

	rank rankKey
}

// Occurrence is one citation site with its resolved PDF location. PDFPage
// and PDFLineno are nil when resolution failed or was skipped; absence is a
// degraded-display state, not an error.
type Occurrence struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	PDFPage   *int   `json:"pdfPage"`
	PDFLineno *int   `json:"pdfLineno"`
	Snippet   string `json:"snippet"`
}

// Locator resolves a source position to a PDF page and printed line number.
// A nil Locator means no rendered document is available.
type Locator interface {
	Resolve(ctx context.Context, file string, line, column int) (page, printed *int)
}

// absent is the sentinel rank component for unresolved values; it is larger
// than any realistic page or line count so unresolved occurrences sort last.
const absent = 1_000_000_000

// rankKey orders cards by first visual appearance: page, then printed line,
// then source line.
type rankKey struct {
	page, line, src int64
}

func (a rankKey) less(b rankKey) bool {
	if a.page != b.page {
		return a.page < b.page
	}
	if a.line != b.line {
		return a.line < b.line
	}
	return a.src < b.src
}

// score folds the rank triple into the single composite integer exposed on
// the card.
func (a rankKey) score() int64 {
	return a.page*1_000_000 + a.line*1_000 + a.src
}

// BuildCards assembles sorted display cards. Records with no occurrences
// are dropped. loc may be nil (no PDF); numbers may be nil. onOccurrence,
// when non-nil, is called once per processed occurrence for progress
// reporting.
func BuildCards(
	ctx context.Context,
	records []*bibtex.Record,
	occurrences map[string][]texscan.Occurrence,
	loc Locator,
	numbers map[string]int,
	onOccurrence func(),
	log *slog.Logger,
) []Card {
	var cards []Card

	for _, rec := range records {
		occs := occurrences[rec.Key]
		if len(occs) == 0 {
			// Uncited entries are dropped, not rendered.
			continue
		}
		log.Debug("building card", "key", rec.Key, "occurrences", len(occs))

		card := Card{
			Key:                 rec.Key,
			Title:               detex.Convert(rec.Field("title")),
			Authors:             splitAuthors(rec.Field("author")),
			Year:                parseYear(rec.Field("year")),
			DOI:                 cleanDOI(rec.Field("doi")),
			URL:                 cleanURL(rec.Field("url")),
			Abstract:            detex.Convert(rec.Field("abstract")),
			BibSourceOrderIndex: rec.OrderIndex,
		}

		best := rankKey{}
		haveBest := false
		for _, o := range occs {
			var page, printed *int
			if loc != nil {
				page, printed = loc.Resolve(ctx, o.File, o.Line, o.Column)
				key := rankKey{
					page: orSentinel(page),
					line: orSentinel(printed),
					src:  int64(o.Line),
				}
				if !haveBest || key.less(best) {
					best = key
					haveBest = true
				}
			}
			if onOccurrence != nil {
				onOccurrence()
			}
			card.Occurrences = append(card.Occurrences, Occurrence{
				File:      o.File,
				Line:      o.Line,
				PDFPage:   page,
				PDFLineno: printed,
				Snippet:   o.Snippet,
			})
		}

		if !haveBest {
			minSrc := int64(occs[0].Line)
			for _, o := range occs[1:] {
				if int64(o.Line) < minSrc {
					minSrc = int64(o.Line)
				}
			}
			best = rankKey{page: absent, line: absent, src: minSrc}
		}
		card.rank = best
		card.FirstOccurrenceRank = best.score()
		if n, ok := numbers[rec.Key]; ok {
			card.SequenceNumber = n
		}

		cards = append(cards, card)
	}

	sortCards(cards)
	fillSequenceNumbers(cards)
	return cards
}

// sortCards orders cards by (rank, bib order, key); the lexical key is the
// last-resort tie break so identical inputs always produce identical order.
func sortCards(cards []Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].rank != cards[j].rank {
			return cards[i].rank.less(cards[j].rank)
		}
		if cards[i].BibSourceOrderIndex != cards[j].BibSourceOrderIndex {
			return cards[i].BibSourceOrderIndex < cards[j].BibSourceOrderIndex
		}
		return cards[i].Key < cards[j].Key
	})
}

// fillSequenceNumbers assigns the smallest unused positive integers, in
// display order, to cards the numbering pass did not cover.
func fillSequenceNumbers(cards []Card) {
	used := make(map[int]bool)
	for _, c := range cards {
		if c.SequenceNumber > 0 {
			used[c.SequenceNumber] = true
		}
	}
	next := 1
	for i := range cards {
		if cards[i].SequenceNumber > 0 {
			continue
		}
		for used[next] {
			next++
		}
		cards[i].SequenceNumber = next
		used[next] = true
		next++
	}
}

func orSentinel(v *int) int64 {
	if v == nil {
		return absent
	}
	return int64(*v)
}

var (
	authorSplitRe = regexp.MustCompile(`\s+and\s+`)
	yearRe        = regexp.MustCompile(`\d{4}`)
)

func splitAuthors(field string) []string {
	if field == "" {
		return nil
	}
	var authors []string
	for _, part := range authorSplitRe.Split(field, -1) {
		part = strings.TrimSpace(part)
		if part != "" {
			authors = append(authors, detex.Convert(part))
		}
	}
	return authors
}

func parseYear(field string) *int {
	m := yearRe.FindString(field)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &y
}

func cleanDOI(field string) *string {
	doi := strings.Trim(strings.TrimSpace(field), "{} \t\r\n")
	if doi == "" {
		return nil
	}
	return &doi
}

func cleanURL(field string) *string {
	url := strings.TrimSpace(field)
	if url == "" {
		return nil
	}
	return &url
}
