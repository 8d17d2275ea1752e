package delivery

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fivetwenty-io/cda-client/internal/constants"
)

// PageFetcher returns one page of a collection. EntriesClient and
// AssetsClient implement it.
type PageFetcher interface {
	List(ctx context.Context, params *QueryParams) (*Document, error)
}

// GetEntries fetches one page of entries and materializes it into T using the
// client's decode options followed by opts.
func GetEntries[T any](ctx context.Context, client Client, params *QueryParams, opts ...Option) (*Collection[T], error) {
	doc, err := client.Entries().List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	decode := append(client.DecodeOptions(), opts...)

	return Materialize[T](Resolve(doc, decode...), decode...)
}

// GetEntry fetches one entry with its linked includes and materializes it
// into T. Links that could not be resolved are returned alongside.
func GetEntry[T any](ctx context.Context, client Client, id string, params *QueryParams, opts ...Option) (T, []ResolutionError, error) {
	var zero T

	doc, err := client.Entries().Get(ctx, id, params)
	if err != nil {
		return zero, nil, fmt.Errorf("getting entry %s: %w", id, err)
	}

	if len(doc.Items) == 0 {
		return zero, nil, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}

	decode := append(client.DecodeOptions(), opts...)
	res := Resolve(doc, decode...)

	value, err := MaterializeEntity[T](res.Items[0], decode...)
	if err != nil {
		return zero, res.Errors, err
	}

	return value, res.Errors, nil
}

// GetAssets fetches one page of assets.
func GetAssets(ctx context.Context, client Client, params *QueryParams) (*Collection[*Asset], error) {
	doc, err := client.Assets().List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}

	decode := client.DecodeOptions()

	return Materialize[*Asset](Resolve(doc, decode...), decode...)
}

// GetAsset fetches a single asset.
func GetAsset(ctx context.Context, client Client, id string, params *QueryParams) (*Asset, error) {
	doc, err := client.Assets().Get(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("getting asset %s: %w", id, err)
	}

	if len(doc.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	decode := client.DecodeOptions()
	res := Resolve(doc, decode...)

	return MaterializeEntity[*Asset](res.Items[0], decode...)
}

// PaginationOptions controls FetchAllPages.
type PaginationOptions struct {
	// PageSize is the limit of each page request.
	PageSize int
	// MaxPages stops after this many pages; 0 fetches all.
	MaxPages int
	// Concurrency bounds the pages fetched at once after the first.
	Concurrency int
}

// DefaultPaginationOptions returns default pagination options.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{
		PageSize:    constants.DefaultPageLimit,
		Concurrency: constants.DefaultConcurrencyLimit,
	}
}

// FetchAllPages fetches every page of a collection and materializes them as
// one. The first page is fetched alone to learn the total; the rest are
// fetched concurrently and merged in order into a single document before
// resolution, so resources shared between pages resolve to one instance.
func FetchAllPages[T any](ctx context.Context, fetcher PageFetcher, params *QueryParams, pagination *PaginationOptions, opts ...Option) (*Collection[T], error) {
	if pagination == nil {
		pagination = DefaultPaginationOptions()
	}

	pageSize := pagination.PageSize
	if pageSize <= 0 {
		pageSize = constants.DefaultPageLimit
	}

	base := params.Clone().WithLimit(pageSize)
	start := base.Skip

	first, err := fetcher.List(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("fetching first page: %w", err)
	}

	var skips []int
	for skip := start + pageSize; skip < first.Total; skip += pageSize {
		if pagination.MaxPages > 0 && len(skips)+1 >= pagination.MaxPages {
			break
		}

		skips = append(skips, skip)
	}

	pages := make([]*Document, len(skips))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(pagination.Concurrency, 1))

	for i, skip := range skips {
		group.Go(func() error {
			page, pageErr := fetcher.List(groupCtx, base.Clone().WithSkip(skip))
			if pageErr != nil {
				return fmt.Errorf("fetching page at skip %d: %w", skip, pageErr)
			}

			pages[i] = page

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return nil, err
	}

	merged := mergeDocuments(first, pages)

	return Materialize[T](Resolve(merged, opts...), opts...)
}

// mergeDocuments concatenates pages in order. A resource included by several
// pages is kept once.
func mergeDocuments(first *Document, rest []*Document) *Document {
	merged := &Document{
		Skip:  first.Skip,
		Total: first.Total,
	}

	seen := make(map[Key]bool)

	for _, page := range append([]*Document{first}, rest...) {
		merged.Items = append(merged.Items, page.Items...)
		merged.Includes.Entry = appendIncluded(merged.Includes.Entry, page.Includes.Entry, seen)
		merged.Includes.Asset = appendIncluded(merged.Includes.Asset, page.Includes.Asset, seen)
		merged.Errors = append(merged.Errors, page.Errors...)
	}

	merged.Limit = len(merged.Items)

	return merged
}

func appendIncluded(dst, nodes []RawNode, seen map[Key]bool) []RawNode {
	for _, node := range nodes {
		key, ok := node.Sys.Key()
		if ok && seen[key] {
			continue
		}

		if ok {
			seen[key] = true
		}

		dst = append(dst, node)
	}

	return dst
}

// PaginationIterator walks the items of a collection page by page.
type PaginationIterator[T any] struct {
	ctx     context.Context
	fetcher PageFetcher
	params  *QueryParams
	opts    []Option

	items   []T
	index   int
	skip    int
	total   int
	fetched bool
	done    bool
	errors  []ResolutionError
}

// NewPaginationIterator creates an iterator starting at params.Skip.
func NewPaginationIterator[T any](ctx context.Context, fetcher PageFetcher, params *QueryParams, opts ...Option) *PaginationIterator[T] {
	params = params.Clone()

	return &PaginationIterator[T]{
		ctx:     ctx,
		fetcher: fetcher,
		params:  params,
		opts:    opts,
		skip:    params.Skip,
	}
}

// HasNext reports whether Next may return another item.
func (it *PaginationIterator[T]) HasNext() bool {
	if it.index < len(it.items) {
		return true
	}

	if it.done {
		return false
	}

	return !it.fetched || it.skip < it.total
}

// Next returns the next item, fetching the next page when needed.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	for it.index >= len(it.items) {
		if !it.HasNext() {
			return zero, ErrNoMoreItems
		}

		err := it.fetchPage()
		if err != nil {
			return zero, err
		}
	}

	item := it.items[it.index]
	it.index++

	return item, nil
}

func (it *PaginationIterator[T]) fetchPage() error {
	doc, err := it.fetcher.List(it.ctx, it.params.Clone().WithSkip(it.skip))
	if err != nil {
		return fmt.Errorf("fetching page at skip %d: %w", it.skip, err)
	}

	col, err := Materialize[T](Resolve(doc, it.opts...), it.opts...)
	if err != nil {
		return err
	}

	it.fetched = true
	it.total = doc.Total
	it.skip += len(doc.Items)
	it.items = col.Items
	it.index = 0
	it.errors = append(it.errors, col.Errors...)

	if len(doc.Items) == 0 {
		it.done = true
	}

	return nil
}

// All drains the iterator.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMoreItems) {
				break
			}

			return nil, err
		}

		all = append(all, item)
	}

	return all, nil
}

// ForEach calls fn for every remaining item, stopping at the first error.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			if errors.Is(err, ErrNoMoreItems) {
				return nil
			}

			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return nil
}

// Errors returns the resolution errors of every page fetched so far.
func (it *PaginationIterator[T]) Errors() []ResolutionError {
	return it.errors
}
