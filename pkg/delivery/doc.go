// Package delivery provides types, link resolution and materialization for
// content delivery API responses.
//
// # Overview
//
// A delivery response is a flat page: items plus side lists of included
// entries and assets, with references written as link stubs. Resolve turns
// a parsed Document into a connected graph of *Entity values in which every
// stub to an entry or asset is replaced by its target. Each target is built
// once, so every reference to it shares one pointer, and cycles in the
// content graph terminate by reusing the pointer under construction. Links
// whose target is missing are recorded in Resolution.Errors instead of
// failing the page.
//
//	doc, err := delivery.ParseDocument(body)
//	if err != nil { return err }
//
//	res := delivery.Resolve(doc, delivery.WithResolvePolicy(delivery.ResolveSelective))
//	for _, item := range res.Items {
//	  author := item.Link("author")
//	  _ = author
//	}
//
// # Typed results
//
// Materialize converts a Resolution into caller types. Types that embed the
// whole node implement ContentResource (see Entry); other struct types get
// the fields lifted to their top level and sys in a Sys field:
//
//	type Author struct {
//	  Sys  delivery.Sys
//	  Name string `json:"name" validate:"required"`
//	}
//
//	type Post struct {
//	  Sys    delivery.Sys
//	  Title  string             `json:"title"`
//	  Author *Author            `json:"author"`
//	  Body   *delivery.RichText `json:"body"`
//	}
//
//	posts, err := delivery.Decode[*Post](body, delivery.WithValidation())
//
// Interface targets are resolved per content type through a
// ContentTypeRegistry passed with WithContentTypeResolver. Decode runs
// ParseDocument, Resolve and Materialize in one call.
//
// # Fetching
//
// The Client interface exposes EntriesClient and AssetsClient. A concrete
// implementation is provided by the cdaclient package. GetEntries, GetEntry,
// FetchAllPages and NewPaginationIterator combine fetching with decoding.
//
// # Errors
//
// Service errors are represented by APIError. IsNotFound, IsUnauthorized and
// IsRateLimited branch on the common cases. Values that do not fit their
// target type are reported as *MaterializeError.
//
// # Interceptors and caching
//
// InterceptorChain runs request and response hooks around every call.
// Cache backends (MemoryCache, NATSKVCache, NoOpCache, CacheChain) store raw
// response bodies; PrometheusMetrics records traffic and unresolved links.
package delivery
