package pagination

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/verkado/storefront-client/pkg/api"
	"github.com/verkado/storefront-client/pkg/logging"
)

// State is the lifecycle state of a paged query.
type State string

const (
	// StateIdle means no fetch has been issued yet.
	StateIdle State = "idle"

	// StateFetching means the initial page is in flight.
	StateFetching State = "fetching"

	// StateReady means at least one page has resolved; HasNextPage tells
	// whether more can be loaded.
	StateReady State = "ready"

	// StateFetchingMore means a further page is in flight.
	StateFetchingMore State = "fetching_more"

	// StateError means the last fetch step failed.
	StateError State = "error"
)

// Page is one resolved page of items plus its pagination metadata.
type Page[T any] struct {
	Items      []T
	Pagination *api.Pagination
}

// FetchFunc fetches a single page positioned by params.
type FetchFunc[T any] func(ctx context.Context, params api.ListParams) (Page[T], error)

// Query accumulates pages for a single query key.
//
// All state lives behind one mutex; the fetch itself runs outside the lock
// and its result is applied only if the query's generation is unchanged, so
// a response arriving after Reset or Cancel can never corrupt the item list.
type Query[T any] struct {
	mu     sync.Mutex
	fetch  FetchFunc[T]
	params api.ListParams
	logger zerolog.Logger

	state      State
	generation uint64
	items      []T
	hasNext    bool
	nextPage   int
	nextCursor string
	err        error

	// Pages seen for the current generation, for logging only.
	pagesFetched int
}

// New creates a query over an arbitrary page fetcher.
func New[T any](fetch FetchFunc[T], params api.ListParams) *Query[T] {
	return &Query[T]{
		fetch:  fetch,
		params: params,
		state:  StateIdle,
		logger: logging.NewLogger("pagination"),
	}
}

// NewQuery creates a query that fetches pages of T from a storefront list
// endpoint through the given client.
func NewQuery[T any](client *api.Client, path string, params api.ListParams) *Query[T] {
	fetch := func(ctx context.Context, p api.ListParams) (Page[T], error) {
		result, err := client.List(ctx, path, p)
		if err != nil {
			return Page[T]{}, err
		}

		var items []T
		if result.Data != nil {
			if err := json.Unmarshal(result.Data, &items); err != nil {
				return Page[T]{}, &api.ParseError{Err: err}
			}
		}

		return Page[T]{Items: items, Pagination: result.Pagination}, nil
	}
	return New(fetch, params)
}

// Fetch loads the first page, discarding any previously accumulated items.
// Calling Fetch while a fetch is in flight abandons the old one: its result
// arrives with a stale generation and is dropped.
func (q *Query[T]) Fetch(ctx context.Context) error {
	q.mu.Lock()
	q.generation++
	gen := q.generation
	q.state = StateFetching
	q.items = nil
	q.err = nil
	q.hasNext = false
	q.nextPage = 0
	q.nextCursor = ""
	q.pagesFetched = 0
	params := q.params
	q.mu.Unlock()

	page, err := q.fetch(ctx, params)

	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation {
		q.logger.Debug().
			Uint64("generation", gen).
			Msg("Discarding stale initial page")
		return nil
	}

	if err != nil {
		q.state = StateError
		q.err = err
		return err
	}

	q.apply(page)
	return nil
}

// FetchNext loads the next page. It is a no-op when no next page is
// advertised or when another FetchNext is already in flight for this query
// (duplicate "load more" invocations coalesce instead of issuing parallel
// requests).
func (q *Query[T]) FetchNext(ctx context.Context) error {
	q.mu.Lock()
	if q.state == StateFetchingMore {
		q.mu.Unlock()
		return nil
	}
	if q.state != StateReady || !q.hasNext {
		q.mu.Unlock()
		return nil
	}
	q.state = StateFetchingMore
	gen := q.generation

	params := q.params
	if q.nextCursor != "" {
		params.Cursor = q.nextCursor
		params.Page = 0
	} else {
		params.Page = q.nextPage
		params.Cursor = ""
	}
	q.mu.Unlock()

	page, err := q.fetch(ctx, params)

	q.mu.Lock()
	defer q.mu.Unlock()

	if gen != q.generation {
		q.logger.Debug().
			Uint64("generation", gen).
			Msg("Discarding stale page")
		return nil
	}

	if err != nil {
		q.state = StateError
		q.err = err
		return err
	}

	q.apply(page)
	return nil
}

// FetchAll loads the first page and then every advertised next page,
// returning the full accumulated item list.
func (q *Query[T]) FetchAll(ctx context.Context) ([]T, error) {
	if err := q.Fetch(ctx); err != nil {
		return nil, err
	}
	for q.HasNextPage() {
		if err := q.FetchNext(ctx); err != nil {
			return nil, err
		}
	}
	return q.Items(), nil
}

// Cancel abandons any in-flight fetch for this query. A response already on
// the wire resolves against a stale generation and is discarded.
func (q *Query[T]) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.generation++
	switch q.state {
	case StateFetching:
		q.state = StateIdle
	case StateFetchingMore:
		q.state = StateReady
	}
}

// Items returns a copy of the accumulated items in response order.
func (q *Query[T]) Items() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]T, len(q.items))
	copy(items, q.items)
	return items
}

// HasNextPage reports whether the store advertised a further page.
func (q *Query[T]) HasNextPage() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.hasNext
}

// State returns the current lifecycle state.
func (q *Query[T]) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Err returns the error of the last failed fetch step, if any.
func (q *Query[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// apply appends a resolved page and records the next paging position.
// Caller holds q.mu.
func (q *Query[T]) apply(page Page[T]) {
	q.items = append(q.items, page.Items...)
	q.pagesFetched++

	p := page.Pagination
	q.hasNext = p.HasNext()
	q.nextPage = 0
	q.nextCursor = ""
	if p != nil {
		if p.NextCursor != "" {
			q.nextCursor = p.NextCursor
		} else if p.NextPage != nil {
			q.nextPage = *p.NextPage
		}
	}

	q.state = StateReady
	q.err = nil

	q.logger.Debug().
		Int("page_items", len(page.Items)).
		Int("total_items", len(q.items)).
		Int("pages", q.pagesFetched).
		Bool("has_next", q.hasNext).
		Msg("Page applied")
}
