// Package cdaclient provides the primary entry point for constructing a
// content delivery API client that implements the delivery.Client interface.
//
// It layers configuration, the retrying HTTP transport, response caching and
// interceptors on top of the resource interfaces, link resolution and
// materialization defined in the delivery package. Most applications import
// cdaclient to build a client, then use the delivery helpers with it.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/cda-client/pkg/cdaclient"
//	  "github.com/fivetwenty-io/cda-client/pkg/delivery"
//	)
//
//	type Post struct {
//	  Sys   delivery.Sys
//	  Title string `json:"title"`
//	}
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := cdaclient.NewWithToken(ctx, "space-id", "delivery-token")
//	  if err != nil { log.Fatal(err) }
//
//	  posts, err := delivery.GetEntries[*Post](ctx, cli,
//	    delivery.NewQueryParams().WithContentType("post").WithInclude(2))
//	  if err != nil { log.Fatal(err) }
//
//	  for _, resErr := range posts.Errors {
//	    log.Printf("unresolved link: %s", resErr)
//	  }
//	}
//
// # Hosts and environments
//
// Config.BaseURL defaults to the delivery host, or to the preview host when
// Config.Preview is set. A host without a scheme gets "https://". The
// environment defaults to "master".
//
// # Helpers
//
// NewWithToken and NewPreview cover the common cases of a delivery or preview
// token for the master environment.
package cdaclient
