package epub

import "fmt"

// bytesPerPosition is the size of one virtual page, shared by the page count
// estimate and reflowable positions.
const bytesPerPosition = 1024

// EstimatePageCount sums ceil(compressedSize/1024) over the pages. Pages
// whose entry is missing from the archive contribute zero.
func EstimatePageCount(a Archive, pages []Resource) int {
	total := 0
	for _, r := range pages {
		if r.Kind != KindPage {
			continue
		}
		e, ok := a.Entry(r.Href)
		if !ok || e.CompressedSize <= 0 {
			continue
		}
		total += ceilDiv(e.CompressedSize, bytesPerPosition)
	}
	return total
}

// SynthesizePositions builds the locator list over the pages. Fixed-layout
// pages get one locator each. Reflowable pages get max(1, ceil(size/1024))
// locators with evenly spaced progressions, so every reflowable page must
// have a size.
//
// TotalProgression is the share of locators before this one, (position-1)/count:
// the first locator is at 0 and the last at (n-1)/n, never 1.
func SynthesizePositions(pages []Resource, fixedLayout bool) ([]Locator, error) {
	var locators []Locator
	position := 1

	for _, r := range pages {
		if r.Kind != KindPage {
			continue
		}

		if fixedLayout {
			locators = append(locators, Locator{
				Href:      r.Href,
				MediaType: r.MediaType,
				Position:  position,
			})
			position++
			continue
		}

		if r.Size == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownSize, r.Href)
		}
		count := max(1, ceilDiv(*r.Size, bytesPerPosition))
		for i := 0; i < count; i++ {
			locators = append(locators, Locator{
				Href:        r.Href,
				MediaType:   r.MediaType,
				Progression: float64(i) / float64(count),
				Position:    position,
			})
			position++
		}
	}

	// The divisor is only known once every page has been expanded. Positions
	// are 1-based, so the first locator is 1/n and the last is exactly 1.
	total := float64(len(locators))
	for i := range locators {
		locators[i].TotalProgression = float64(locators[i].Position) / total
	}
	return locators, nil
}

func ceilDiv(n int64, d int64) int {
	if n <= 0 {
		return 0
	}
	return int((n + d - 1) / d)
}
