// Package item defines the value types that flow through the feed.
package item

// Item is one entry of a paged listing. IDs are unique within a listing.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Detail is the secondary text resolved for a single item.
type Detail struct {
	ItemID string `json:"item_id"`
	Text   string `json:"text"`
}

// IDs returns the identifiers of items in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// Page is the wire form of one page of a listing.
type Page struct {
	Offset int    `json:"offset"`
	Count  int    `json:"count"`
	Items  []Item `json:"items"`
}
