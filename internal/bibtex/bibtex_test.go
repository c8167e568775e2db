package bibtex

import "testing"

func TestParse_BasicEntry(t *testing.T) {
	src := `@article{smith2020,
  title = {A Study of Things},
  author = {Smith, Jane and Doe, John},
  year = {2020},
}`
	recs := Parse(src)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.Type != "article" {
		t.Errorf("expected type article, got %q", r.Type)
	}
	if r.Key != "smith2020" {
		t.Errorf("expected key smith2020, got %q", r.Key)
	}
	if got := r.Field("title"); got != "A Study of Things" {
		t.Errorf("unexpected title: %q", got)
	}
	if got := r.Field("year"); got != "2020" {
		t.Errorf("unexpected year: %q", got)
	}
}

func TestParse_FieldLookupIsCaseInsensitive(t *testing.T) {
	recs := Parse(`@misc{k, Title = {T}, YEAR = {1999}}`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if got := recs[0].Field("title"); got != "T" {
		t.Errorf("expected case-insensitive title lookup, got %q", got)
	}
	if got := recs[0].Field("Year"); got != "1999" {
		t.Errorf("expected case-insensitive year lookup, got %q", got)
	}
}

func TestParse_NestedBracesInValue(t *testing.T) {
	recs := Parse(`@article{k, title = {The {BIG} Result of {Nested {Deep}} Braces}}`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	want := "The {BIG} Result of {Nested {Deep}} Braces"
	if got := recs[0].Field("title"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParse_QuotedValues(t *testing.T) {
	recs := Parse(`@book{k, title = "A \"Quoted\" Title", year = 2001}`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if got := recs[0].Field("title"); got != `A \"Quoted\" Title` {
		t.Errorf("unexpected title: %q", got)
	}
	if got := recs[0].Field("year"); got != "2001" {
		t.Errorf("unexpected bare year: %q", got)
	}
}

func TestParse_ParenDelimitedEntry(t *testing.T) {
	recs := Parse(`@article(k2, title = {Parens Work Too})`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Key != "k2" {
		t.Errorf("expected key k2, got %q", recs[0].Key)
	}
}

func TestParse_OrderIndexFollowsSourceOrder(t *testing.T) {
	recs := Parse(`
@misc{first, title={1}}
@misc{second, title={2}}
@misc{third, title={3}}
`)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if recs[i].Key != want {
			t.Errorf("record %d: expected key %q, got %q", i, want, recs[i].Key)
		}
		if recs[i].OrderIndex != i {
			t.Errorf("record %d: expected order index %d, got %d", i, i, recs[i].OrderIndex)
		}
	}
}

func TestParse_CommentsAreIgnored(t *testing.T) {
	src := `% leading comment with @fake{nope}
@misc{real, title = {Kept}} % trailing comment
% @misc{alsofake, title={No}}
`
	recs := Parse(src)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Key != "real" {
		t.Errorf("expected key real, got %q", recs[0].Key)
	}
}

func TestParse_EscapedPercentSurvives(t *testing.T) {
	recs := Parse(`@misc{k, title = {Fifty \% Done}}`)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if got := recs[0].Field("title"); got != `Fifty \% Done` {
		t.Errorf("expected escaped percent to survive, got %q", got)
	}
}

func TestParse_MalformedEntriesAreSkipped(t *testing.T) {
	src := `@article{broken, title = {never closed
@misc{ok, title = {Fine}}
`
	recs := Parse(src)
	// The unterminated entry is skipped; the scan resumes and still finds
	// the good one.
	found := false
	for _, r := range recs {
		if r.Key == "ok" {
			found = true
		}
		if r.Key == "broken" {
			t.Errorf("unterminated entry should have been skipped")
		}
	}
	if !found {
		t.Errorf("expected parser to recover and find the ok entry, got %d records", len(recs))
	}
}

func TestParse_EntryWithoutFields(t *testing.T) {
	recs := Parse(`@misc{lonely}`)
	if len(recs) != 0 {
		t.Fatalf("expected entry without a comma to be skipped, got %d records", len(recs))
	}
}

func TestParse_EmptyInput(t *testing.T) {
	if recs := Parse(""); len(recs) != 0 {
		t.Fatalf("expected no records, got %d", len(recs))
	}
}
