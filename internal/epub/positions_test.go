package epub

import (
	"errors"
	"math"
	"testing"
)

func TestIsFixedLayout(t *testing.T) {
	tests := []struct {
		name string
		meta string
		want bool
	}{
		{name: "prefixed property", meta: `<meta property="rendition:layout">pre-paginated</meta>`, want: true},
		{name: "bare property", meta: `<meta property="layout">pre-paginated</meta>`, want: true},
		{name: "surrounding whitespace", meta: `<meta property="rendition:layout">
      pre-paginated
    </meta>`, want: true},
		{name: "reflowable", meta: `<meta property="rendition:layout">reflowable</meta>`, want: false},
		{name: "case sensitive", meta: `<meta property="rendition:layout">Pre-Paginated</meta>`, want: false},
		{name: "absent", meta: `<meta name="cover" content="img"/>`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := loadTestPackage(t, opfDocument("3.0", tt.meta, "", "<spine/>"))
			if got := pkg.IsFixedLayout(); got != tt.want {
				t.Errorf("IsFixedLayout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimatePageCount(t *testing.T) {
	a := newFakeArchive().
		add("a.xhtml", "", 1, 10).
		add("b.xhtml", "", 1024, 5000).
		add("c.xhtml", "", 1025, 5000).
		add("asset.png", "", 99999, 99999)

	pages := []Resource{
		{Href: "a.xhtml", Kind: KindPage},
		{Href: "b.xhtml", Kind: KindPage},
		{Href: "c.xhtml", Kind: KindPage},
		{Href: "missing.xhtml", Kind: KindPage},
		{Href: "asset.png", Kind: KindAsset},
	}

	// 1 + 1 + 2; the missing page adds nothing and assets are ignored.
	if got := EstimatePageCount(a, pages); got != 4 {
		t.Errorf("EstimatePageCount() = %d, want 4", got)
	}
}

func TestSynthesizePositions_FixedLayout(t *testing.T) {
	pages := []Resource{
		{Href: "p1.xhtml", MediaType: "application/xhtml+xml", Kind: KindPage, Size: int64Ptr(50000)},
		{Href: "p2.xhtml", MediaType: "application/xhtml+xml", Kind: KindPage},
		{Href: "p3.xhtml", MediaType: "application/xhtml+xml", Kind: KindPage, Size: int64Ptr(10)},
	}

	locators, err := SynthesizePositions(pages, true)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}
	if len(locators) != len(pages) {
		t.Fatalf("got %d locators, want %d", len(locators), len(pages))
	}
	for i, loc := range locators {
		if loc.Position != i+1 {
			t.Errorf("locators[%d].Position = %d, want %d", i, loc.Position, i+1)
		}
		if loc.Progression != 0 {
			t.Errorf("locators[%d].Progression = %v, want 0", i, loc.Progression)
		}
		if loc.Href != pages[i].Href {
			t.Errorf("locators[%d].Href = %q, want %q", i, loc.Href, pages[i].Href)
		}
	}
}

func TestSynthesizePositions_Reflowable(t *testing.T) {
	pages := []Resource{
		{Href: "ch1.xhtml", MediaType: "application/xhtml+xml", Kind: KindPage, Size: int64Ptr(2500)},
	}

	locators, err := SynthesizePositions(pages, false)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}
	if len(locators) != 3 {
		t.Fatalf("got %d locators, want 3", len(locators))
	}

	wantProgression := []float64{0, 1.0 / 3, 2.0 / 3}
	for i, loc := range locators {
		if math.Abs(loc.Progression-wantProgression[i]) > 1e-9 {
			t.Errorf("locators[%d].Progression = %v, want %v", i, loc.Progression, wantProgression[i])
		}
		if loc.Position != i+1 {
			t.Errorf("locators[%d].Position = %d, want %d", i, loc.Position, i+1)
		}
		if loc.MediaType != "application/xhtml+xml" {
			t.Errorf("locators[%d].MediaType = %q", i, loc.MediaType)
		}
	}
}

func TestSynthesizePositions_ReflowableCounts(t *testing.T) {
	sizes := []int64{0, 1, 1024, 1025, 4096, 10000}
	var pages []Resource
	for i, s := range sizes {
		pages = append(pages, Resource{Href: string(rune('a'+i)) + ".xhtml", Kind: KindPage, Size: int64Ptr(s)})
	}

	locators, err := SynthesizePositions(pages, false)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}

	perPage := make(map[string][]Locator)
	for _, loc := range locators {
		perPage[loc.Href] = append(perPage[loc.Href], loc)
	}
	for _, p := range pages {
		want := max(1, int(math.Ceil(float64(*p.Size)/1024)))
		got := perPage[p.Href]
		if len(got) != want {
			t.Errorf("%s (size %d): %d locators, want %d", p.Href, *p.Size, len(got), want)
			continue
		}
		for i, loc := range got {
			if wantP := float64(i) / float64(want); loc.Progression != wantP {
				t.Errorf("%s locator %d progression = %v, want %v", p.Href, i, loc.Progression, wantP)
			}
		}
	}

	// Positions are global and contiguous.
	for i, loc := range locators {
		if loc.Position != i+1 {
			t.Fatalf("locators[%d].Position = %d, want %d", i, loc.Position, i+1)
		}
	}
}

// Total progression divides the 1-based position by the locator count, so it
// starts at 1/n and the last locator reports 1.
func TestSynthesizePositions_TotalProgression(t *testing.T) {
	pages := []Resource{
		{Href: "a.xhtml", Kind: KindPage, Size: int64Ptr(3000)},
		{Href: "b.xhtml", Kind: KindPage, Size: int64Ptr(100)},
	}

	locators, err := SynthesizePositions(pages, false)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}
	n := len(locators)
	if n != 4 {
		t.Fatalf("got %d locators, want 4", n)
	}

	for i, loc := range locators {
		if want := float64(loc.Position) / float64(n); loc.TotalProgression != want {
			t.Errorf("locators[%d].TotalProgression = %v, want %v", i, loc.TotalProgression, want)
		}
		if i > 0 && loc.TotalProgression < locators[i-1].TotalProgression {
			t.Errorf("TotalProgression decreases at %d: %v < %v", i, loc.TotalProgression, locators[i-1].TotalProgression)
		}
	}
	if locators[0].TotalProgression != 0.25 {
		t.Errorf("first TotalProgression = %v, want 0.25", locators[0].TotalProgression)
	}
	if locators[n-1].TotalProgression != 1 {
		t.Errorf("last TotalProgression = %v, want 1", locators[n-1].TotalProgression)
	}
}

func TestSynthesizePositions_TotalProgressionSinglePage(t *testing.T) {
	pages := []Resource{{Href: "ch1.xhtml", Kind: KindPage, Size: int64Ptr(2500)}}

	locators, err := SynthesizePositions(pages, false)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}
	want := []float64{1.0 / 3, 2.0 / 3, 1}
	for i, loc := range locators {
		if math.Abs(loc.TotalProgression-want[i]) > 1e-9 {
			t.Errorf("locators[%d].TotalProgression = %v, want %v", i, loc.TotalProgression, want[i])
		}
	}
}

func TestSynthesizePositions_UnknownSize(t *testing.T) {
	pages := []Resource{{Href: "a.xhtml", Kind: KindPage}}
	if _, err := SynthesizePositions(pages, false); !errors.Is(err, ErrUnknownSize) {
		t.Errorf("SynthesizePositions() error = %v, want ErrUnknownSize", err)
	}
}

func TestSynthesizePositions_Empty(t *testing.T) {
	locators, err := SynthesizePositions(nil, false)
	if err != nil {
		t.Fatalf("SynthesizePositions() error = %v", err)
	}
	if len(locators) != 0 {
		t.Errorf("got %d locators, want 0", len(locators))
	}
}
