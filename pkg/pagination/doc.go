// Package pagination provides the paged query engine for storefront list
// endpoints.
//
// Each Query owns the accumulated items and the paging position for one
// query key and moves through the states Idle, Fetching, Ready,
// FetchingMore, and Error. Pages are appended strictly in response order;
// a stale in-flight response (one that resolves after the query was reset
// or cancelled) is detected by a generation counter and discarded without
// touching shared state.
//
// Example usage:
//
//	q := pagination.NewQuery[Product](client, "products", api.ListParams{Limit: 20})
//	if err := q.Fetch(ctx); err != nil {
//		return err
//	}
//	for q.HasNextPage() {
//		if err := q.FetchNext(ctx); err != nil {
//			return err
//		}
//	}
//	items := q.Items()
//
// FetchNext calls are coalesced: a second call while one is already in
// flight for the same query is a no-op, so duplicate "load more" taps never
// issue duplicate requests or append duplicate pages.
package pagination
