package render

type Renderer interface {
	RenderResourceList(view ResourceListView) string
	RenderScanSummary(view ScanSummaryView) string
}

type ResourceListView struct {
	Items []ResourceListItem
}

type ResourceListItem struct {
	Name        string
	Kind        string
	Scope       string
	Locator     string
	Description string
	Favorite    bool
}

func (v ResourceListView) IsEmpty() bool {
	return len(v.Items) == 0
}

type ScanSummaryView struct {
	Total int
	New   int
	Rows  []ScanSummaryRow
}

type ScanSummaryRow struct {
	Collection string
	Total      int
	New        int
	Failed     string
}
