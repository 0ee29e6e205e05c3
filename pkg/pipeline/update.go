package pipeline

import "github.com/Sternrassler/item-feed/pkg/item"

// UpdateKind tags an Update.
type UpdateKind int

const (
	// KindAppendItems carries a fetched page. An empty page is published too.
	KindAppendItems UpdateKind = iota + 1

	// KindUpdateDetail carries the detail of an already appended item.
	KindUpdateDetail
)

// String returns the kind name used in logs and metrics.
func (k UpdateKind) String() string {
	switch k {
	case KindAppendItems:
		return "append_items"
	case KindUpdateDetail:
		return "update_detail"
	default:
		return "unknown"
	}
}

// Update is one event of the merged stream. Items is set for
// KindAppendItems, ItemID and Detail for KindUpdateDetail.
type Update struct {
	Kind   UpdateKind
	Items  []item.Item
	ItemID string
	Detail string
}

// AppendItems returns an update appending items in fetch order.
func AppendItems(items []item.Item) Update {
	return Update{Kind: KindAppendItems, Items: items}
}

// UpdateDetail returns an update refining a previously appended item.
func UpdateDetail(itemID, detail string) Update {
	return Update{Kind: KindUpdateDetail, ItemID: itemID, Detail: detail}
}
