package listing

import (
	"math/rand/v2"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/eringen/wpfront/wordpress"
)

func labels(ls []PageLabel) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

func TestPageWindow(t *testing.T) {
	cases := []struct {
		current, total int
		want           string
	}{
		{1, 10, "1,2,3,...,10"},
		{10, 10, "1,...,8,9,10"},
		{5, 10, "1,...,3,4,5,6,7,...,10"},
		{4, 10, "1,2,3,4,5,6,...,10"},
		{1, 2, "1,2"},
		{3, 5, "1,2,3,4,5"},
		{2, 7, "1,2,3,4,...,7"},
	}
	for _, tc := range cases {
		if got := labels(PageWindow(tc.current, tc.total)); got != tc.want {
			t.Fatalf("PageWindow(%d, %d) = %s, want %s", tc.current, tc.total, got, tc.want)
		}
	}
	if PageWindow(1, 1) != nil || PageWindow(1, 0) != nil {
		t.Fatalf("expected no pagination for a single page")
	}
}

func TestPageWindowProperties(t *testing.T) {
	for total := 2; total <= 30; total++ {
		for current := 1; current <= total; current++ {
			ls := PageWindow(current, total)
			if ls[0].Page != 1 || ls[len(ls)-1].Page != total {
				t.Fatalf("(%d,%d) must start at 1 and end at total: %s", current, total, labels(ls))
			}
			hasCurrent := false
			for i, l := range ls {
				if l.Page == current {
					hasCurrent = true
				}
				if l.Ellipsis && i > 0 && ls[i-1].Ellipsis {
					t.Fatalf("(%d,%d) has adjacent ellipses: %s", current, total, labels(ls))
				}
			}
			if !hasCurrent {
				t.Fatalf("(%d,%d) is missing the current page: %s", current, total, labels(ls))
			}
		}
	}
}

func TestFilterChangesResetPage(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	q := NewQuery(10)
	for i := 0; i < 200; i++ {
		q = q.WithPage(rng.IntN(20) + 2)
		if rng.IntN(2) == 0 {
			q = q.WithSearch(string(rune('a' + rng.IntN(26))))
		} else {
			q = q.WithTagToggled(rng.IntN(5) + 1)
		}
		if q.Page != 1 {
			t.Fatalf("page = %d after filter change", q.Page)
		}
	}
}

func TestTagToggleIsSymmetricDifference(t *testing.T) {
	q := NewQuery(10).WithTagToggled(3).WithTagToggled(7)
	if !reflect.DeepEqual(q.Tags, []int{3, 7}) {
		t.Fatalf("tags = %v", q.Tags)
	}
	q = q.WithTagToggled(3)
	if !reflect.DeepEqual(q.Tags, []int{7}) {
		t.Fatalf("tags = %v", q.Tags)
	}
	q = q.WithTagToggled(7)
	if q.Tags != nil {
		t.Fatalf("expected nil tags, got %v", q.Tags)
	}
}

func TestWithTagToggledDoesNotAlias(t *testing.T) {
	base := Query{Page: 1, PerPage: 10, Tags: []int{1, 2}}
	_ = base.WithTagToggled(1)
	if !reflect.DeepEqual(base.Tags, []int{1, 2}) {
		t.Fatalf("original query modified: %v", base.Tags)
	}
}

func TestURLRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	for i := 0; i < 500; i++ {
		q := Query{Page: rng.IntN(50) + 1, PerPage: 10}
		var sb strings.Builder
		for n := rng.IntN(12); n > 0; n-- {
			sb.WriteByte(byte(32 + rng.IntN(95)))
		}
		q.Search = sb.String()
		for id := 1; id <= 8; id++ {
			if rng.IntN(2) == 0 {
				q.Tags = append(q.Tags, id)
			}
		}

		u, err := url.Parse(q.URL("/"))
		if err != nil {
			t.Fatalf("parse %q: %v", q.URL("/"), err)
		}
		got := ParseQuery(u.Query(), 10)
		if !got.Equal(q) {
			t.Fatalf("round trip mismatch:\n  in:  %+v\n  url: %s\n  out: %+v", q, q.URL("/"), got)
		}
	}
}

func TestURLConvention(t *testing.T) {
	cases := []struct {
		q    Query
		want string
	}{
		{NewQuery(10), "/"},
		{Query{Page: 2, PerPage: 10}, "/?page=2"},
		{Query{Page: 1, PerPage: 10, Search: "go lang"}, "/?search=go+lang"},
		{Query{Page: 3, PerPage: 10, Search: "x", Tags: []int{5, 9}}, "/?page=3&search=x&tags=5,9"},
	}
	for _, tc := range cases {
		if got := tc.q.URL(""); got != tc.want {
			t.Fatalf("URL(%+v) = %q, want %q", tc.q, got, tc.want)
		}
	}
}

func TestParseQueryMalformed(t *testing.T) {
	v := url.Values{"page": {"-3"}, "tags": {"4,x,,4,0,6"}}
	q := ParseQuery(v, 0)
	if q.Page != 1 || q.PerPage != DefaultPerPage {
		t.Fatalf("unexpected page/perPage %+v", q)
	}
	if !reflect.DeepEqual(q.Tags, []int{4, 6}) {
		t.Fatalf("tags = %v", q.Tags)
	}
}

func sampleTags(n int) []wordpress.Tag {
	tags := make([]wordpress.Tag, n)
	for i := range tags {
		tags[i] = wordpress.Tag{ID: i + 1, Name: "tag"}
	}
	return tags
}

func TestSampleTags(t *testing.T) {
	all := sampleTags(30)
	got := SampleTags(all, 10, rand.New(rand.NewPCG(7, 0)))
	if len(got) != 10 {
		t.Fatalf("expected 10 tags, got %d", len(got))
	}
	seen := map[int]bool{}
	for _, tag := range got {
		if seen[tag.ID] {
			t.Fatalf("duplicate tag %d in sample", tag.ID)
		}
		seen[tag.ID] = true
	}
	for i, tag := range all {
		if tag.ID != i+1 {
			t.Fatalf("input was reordered")
		}
	}
	if len(SampleTags(sampleTags(3), 10, rand.New(rand.NewPCG(1, 0)))) != 3 {
		t.Fatalf("small input must be returned whole")
	}
}

func TestSeededSampleStable(t *testing.T) {
	first := SeededSample(sampleTags(20), 5, 99)
	if len(first) != 5 {
		t.Fatalf("expected 5 tags, got %d", len(first))
	}
	for i := 0; i < 10; i++ {
		if again := SeededSample(sampleTags(20), 5, 99); !reflect.DeepEqual(first, again) {
			t.Fatalf("sample changed on call %d", i)
		}
	}
	differs := false
	for seed := int64(100); seed < 110 && !differs; seed++ {
		differs = !reflect.DeepEqual(SeededSample(sampleTags(20), 5, seed), first)
	}
	if !differs {
		t.Fatalf("different seeds must not all give the same sample")
	}
}
