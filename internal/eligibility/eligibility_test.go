package eligibility

import (
	"reflect"
	"testing"

	"github.com/desertthunder/pagewalk/internal/models"
)

func playable(id string) models.Item {
	return models.Item{ID: id, Title: "Track " + id, Streamable: true, StreamURL: "https://stream/" + id}
}

func ids(items []models.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestCheck(t *testing.T) {
	tc := []struct {
		name string
		mut  func(*models.Item)
		want Reason
	}{
		{name: "playable", mut: func(*models.Item) {}, want: Eligible},
		{name: "not streamable", mut: func(i *models.Item) { i.Streamable = false }, want: NotStreamable},
		{name: "missing stream url", mut: func(i *models.Item) { i.StreamURL = "" }, want: NoStreamURL},
		{name: "policy block", mut: func(i *models.Item) { i.Policy = "BLOCK" }, want: GeoBlocked},
		{name: "policy block lowercase", mut: func(i *models.Item) { i.Policy = "block" }, want: GeoBlocked},
		{name: "policy allow", mut: func(i *models.Item) { i.Policy = "ALLOW" }, want: Eligible},
		{name: "policy snip", mut: func(i *models.Item) { i.Policy = "SNIP" }, want: Eligible},
		{name: "access blocked", mut: func(i *models.Item) { i.Access = "blocked" }, want: RestrictedAccess},
		{name: "access preview mixed case", mut: func(i *models.Item) { i.Access = "Preview" }, want: RestrictedAccess},
		{name: "access playable", mut: func(i *models.Item) { i.Access = "playable" }, want: Eligible},
		{
			name: "first failing rule wins",
			mut: func(i *models.Item) {
				i.Streamable = false
				i.Policy = "BLOCK"
			},
			want: NotStreamable,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			item := playable("1")
			tt.mut(&item)

			if got := Check(item); got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if got := IsEligible(item); got != (tt.want == Eligible) {
				t.Errorf("IsEligible() = %v, want %v", got, tt.want == Eligible)
			}
		})
	}
}

func TestFilterEligible(t *testing.T) {
	t.Run("preserves order and leaves input untouched", func(t *testing.T) {
		blocked := playable("2")
		blocked.Policy = "BLOCK"
		input := []models.Item{playable("1"), blocked, playable("3")}
		before := append([]models.Item(nil), input...)

		got := FilterEligible(input)

		if want := []string{"1", "3"}; !reflect.DeepEqual(ids(got), want) {
			t.Errorf("FilterEligible() = %v, want %v", ids(got), want)
		}
		if !reflect.DeepEqual(input, before) {
			t.Error("input was modified")
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		preview := playable("2")
		preview.Access = "preview"
		input := []models.Item{playable("1"), preview, playable("3")}

		once := FilterEligible(input)
		twice := FilterEligible(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("expected idempotent filter, got %v then %v", ids(once), ids(twice))
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := FilterEligible(nil); len(got) != 0 {
			t.Errorf("expected empty result, got %v", got)
		}
	})
}

func TestDeduplicate(t *testing.T) {
	t.Run("keeps first occurrence", func(t *testing.T) {
		first := playable("a")
		first.Title = "first"
		later := playable("a")
		later.Title = "later"

		got := Deduplicate([]models.Item{first, playable("b"), later, playable("c"), playable("b")})

		if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids(got), want) {
			t.Errorf("Deduplicate() = %v, want %v", ids(got), want)
		}
		if got[0].Title != "first" {
			t.Errorf("expected first occurrence to be kept, got %q", got[0].Title)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		input := []models.Item{
			playable("a"), playable("b"), playable("a"), playable("c"),
			playable("d"), playable("b"), playable("e"), playable("a"), playable("e"),
		}
		once := Deduplicate(input)
		if twice := Deduplicate(once); !reflect.DeepEqual(twice, once) {
			t.Errorf("Deduplicate(Deduplicate(xs)) = %v, want %v", ids(twice), ids(once))
		}
		if want := []string{"a", "b", "c", "d", "e"}; !reflect.DeepEqual(ids(once), want) {
			t.Errorf("Deduplicate() = %v, want %v", ids(once), want)
		}
	})

	t.Run("ids are unique", func(t *testing.T) {
		input := []models.Item{playable("x"), playable("x"), playable("y"), playable("x")}
		got := Deduplicate(input)
		seen := map[string]bool{}
		for _, item := range got {
			if seen[item.ID] {
				t.Fatalf("duplicate id %s in output", item.ID)
			}
			seen[item.ID] = true
		}
	})
}

func TestFilterAndDeduplicate(t *testing.T) {
	geo := playable("2")
	geo.Policy = "BLOCK"
	input := []models.Item{playable("1"), geo, playable("1"), playable("3")}

	got := FilterAndDeduplicate(input)

	if want := []string{"1", "3"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("FilterAndDeduplicate() = %v, want %v", ids(got), want)
	}
}

func TestTally(t *testing.T) {
	geo := playable("2")
	geo.Policy = "BLOCK"
	silent := playable("3")
	silent.StreamURL = ""

	counts := Tally([]models.Item{playable("1"), geo, silent, playable("4")})

	if counts[Eligible] != 2 || counts[GeoBlocked] != 1 || counts[NoStreamURL] != 1 {
		t.Errorf("unexpected tally %v", counts)
	}
	if GeoBlocked.String() != "geo_blocked" {
		t.Errorf("unexpected reason label %q", GeoBlocked.String())
	}
}
