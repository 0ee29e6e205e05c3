// Package pagination turns a stream of requested page sizes into offset/count
// page requests and fetches those pages strictly one after another.
//
// Pages are never fetched concurrently. Request i+1 is not issued until the
// result of request i has been handed to the caller, which bounds backend
// load and keeps pages in request order.
//
// Example usage:
//
//	sizes := make(chan int)
//	requests := make(chan pagination.PageRequest)
//	go pagination.Scan(ctx, sizes, requests)
//
//	loader := pagination.NewSequentialFetcher(pages, pagination.DefaultConfig())
//	err := loader.Run(ctx, requests, func(ctx context.Context, res pagination.PageResult) error {
//		render(res.Items)
//		return nil
//	})
//
// The cursor:
//   - Starts at offset 0
//   - Advances the offset by the count of the previous request
//   - Keeps its state local to one Scan call
package pagination
