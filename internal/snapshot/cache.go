package snapshot

import "github.com/wdauditor/sitelinkaudit/internal/model"

// pageRow is the parquet layout of one page snapshot row. Column names
// match the staging tables so both sinks stay interchangeable.
type pageRow struct {
	Namespace int32  `parquet:"ns_numerical"`
	Title     string `parquet:"full_page_title"`
	Item      string `parquet:"qid,optional"`
}

// sitelinkRow is the parquet layout of one sitelink snapshot row.
type sitelinkRow struct {
	Item  string `parquet:"qid_sitelink"`
	Title string `parquet:"sitelink"`
}

func (r pageRow) toModel() model.LocalPage {
	return model.LocalPage{
		Namespace: int(r.Namespace),
		Title:     r.Title,
		Item:      r.Item,
	}
}

func (r sitelinkRow) toModel() model.CentralSitelink {
	return model.CentralSitelink{
		Item:  r.Item,
		Title: r.Title,
	}
}
