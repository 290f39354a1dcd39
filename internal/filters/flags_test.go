package filters

import (
	"net/url"
	"testing"
)

func TestFromValues(t *testing.T) {
	values := url.Values{
		FacetSearch:    {"  night  "},
		FacetGenres:    {"rock,jazz", "pop"},
		FacetCities:    {""},
		FacetDateOrder: {"ASC"},
		"bogus":        {"x"},
	}

	st := FromValues(Events.Schema, values)

	if got := st.Text(FacetSearch); got != "night" {
		t.Errorf("expected trimmed search, got %q", got)
	}
	if got := st.Items(FacetGenres); len(got) != 3 {
		t.Errorf("expected 3 genres, got %v", got)
	}
	if got := st.Items(FacetCities); len(got) != 0 {
		t.Errorf("expected no cities, got %v", got)
	}
	if got := st.Order(FacetDateOrder); got != Asc {
		t.Errorf("expected asc, got %q", got)
	}
	if _, ok := st["bogus"]; ok {
		t.Error("expected unknown key to be dropped")
	}

	t.Run("invalid order keeps default", func(t *testing.T) {
		st := FromValues(Artists.Schema, url.Values{FacetOrder: {"up"}})
		if got := st.Order(FacetOrder); got != Desc {
			t.Errorf("expected desc, got %q", got)
		}
	})
}
