package snapshot

import (
	"math/rand"

	"github.com/wdauditor/sitelinkaudit/internal/model"
)

// Defect is one inconsistent sitelink found by the differencer.
type Defect struct {
	// Item is the central item id carrying the sitelink.
	Item string

	// Title is the sitelink title on the project.
	Title string

	// Namespace is the numeric namespace of the local page, when one
	// exists.
	Namespace int

	// LocalItem is the item id recorded locally on the page, or empty.
	LocalItem string
}

// Diff partitions the joined snapshots into the three defect classes. The
// classes are mutually exclusive and exhaustive over inconsistent rows:
// every sitelink is either consistent or in exactly one class.
type Diff struct {
	// PageMissing holds sitelinks whose title matches no local page.
	PageMissing []Defect

	// LocalItemDiffers holds sitelinks whose page exists but records a
	// different item id locally.
	LocalItemDiffers []Defect

	// LocalItemMissing holds sitelinks whose page exists but records no
	// item id locally.
	LocalItemMissing []Defect

	// PageMissingTotal is the full PageMissing count before any sampling.
	PageMissingTotal int
}

// Compare left-joins the central sitelinks onto the local pages by title
// and partitions the inconsistent rows.
func Compare(pages []model.LocalPage, sitelinks []model.CentralSitelink) *Diff {
	byTitle := make(map[string]model.LocalPage, len(pages))
	for _, p := range pages {
		byTitle[p.Title] = p
	}

	diff := &Diff{}
	for _, link := range sitelinks {
		page, ok := byTitle[link.Title]
		switch {
		case !ok:
			diff.PageMissing = append(diff.PageMissing, Defect{
				Item:  link.Item,
				Title: link.Title,
			})
		case page.Item == "":
			diff.LocalItemMissing = append(diff.LocalItemMissing, Defect{
				Item:      link.Item,
				Title:     link.Title,
				Namespace: page.Namespace,
			})
		case page.Item != link.Item:
			diff.LocalItemDiffers = append(diff.LocalItemDiffers, Defect{
				Item:      link.Item,
				Title:     link.Title,
				Namespace: page.Namespace,
				LocalItem: page.Item,
			})
		}
	}

	diff.PageMissingTotal = len(diff.PageMissing)
	return diff
}

// SamplePageMissing caps the PageMissing partition at limit rows by
// uniform random sampling without replacement. PageMissingTotal keeps the
// full count so reports stay truthful about the backlog size. rng may be
// seeded for reproducibility in tests.
func (d *Diff) SamplePageMissing(limit int, rng *rand.Rand) {
	if limit <= 0 || len(d.PageMissing) <= limit {
		return
	}

	sampled := make([]Defect, len(d.PageMissing))
	copy(sampled, d.PageMissing)
	rng.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	d.PageMissing = sampled[:limit]
}
