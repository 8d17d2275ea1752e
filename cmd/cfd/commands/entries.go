package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// queryFlags holds the list query flags shared by entries and assets.
type queryFlags struct {
	contentType string
	limit       int
	skip        int
	include     int
	locale      string
	order       []string
	selectPaths []string
	filters     map[string]string
}

func (f *queryFlags) register(cmd *cobra.Command, withContentType bool) {
	if withContentType {
		cmd.Flags().StringVar(&f.contentType, "content-type", "", "filter by content type ID")
		cmd.Flags().IntVar(&f.include, "include", -1, "link depth embedded in includes (0-10)")
		cmd.Flags().StringToStringVar(&f.filters, "filter", nil, "field filters, e.g. fields.slug=intro")
	}

	cmd.Flags().IntVar(&f.limit, "limit", 0, "page size (max 1000)")
	cmd.Flags().IntVar(&f.skip, "skip", 0, "number of items to skip")
	cmd.Flags().StringVar(&f.locale, "locale", "", "locale code, or * for all locales")
	cmd.Flags().StringSliceVar(&f.order, "order", nil, "order clauses, e.g. -sys.createdAt")
	cmd.Flags().StringSliceVar(&f.selectPaths, "select", nil, "fields to return, e.g. fields.title")
}

func (f *queryFlags) params() *delivery.QueryParams {
	params := delivery.NewQueryParams().
		WithContentType(f.contentType).
		WithSkip(f.skip).
		WithLimit(f.limit).
		WithLocale(f.locale).
		WithOrder(f.order...).
		WithSelect(f.selectPaths...)

	if f.include >= 0 {
		params.WithInclude(f.include)
	}

	for key, value := range f.filters {
		params.WithFilter(key, value)
	}

	return params
}

// NewEntriesCommand creates the entries command group.
func NewEntriesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry"},
		Short:   "Read entries",
		Long:    "List and get entries with their linked entries and assets resolved",
	}

	cmd.AddCommand(newEntriesListCommand())
	cmd.AddCommand(newEntriesGetCommand())

	return cmd
}

func newEntriesListCommand() *cobra.Command {
	var (
		flags    queryFlags
		allPages bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Long:  "List one page of entries, or every page with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			client, closer, err := createClient(config)
			if err != nil {
				return err
			}
			defer closer()

			ctx := context.Background()
			params := flags.params()

			var col *delivery.Collection[*delivery.Entity]

			if allPages {
				pagination := delivery.DefaultPaginationOptions()
				pagination.MaxPages = maxPages

				if flags.limit > 0 {
					pagination.PageSize = flags.limit
				}

				col, err = delivery.FetchAllPages[*delivery.Entity](ctx, client.Entries(), params, pagination, client.DecodeOptions()...)
			} else {
				col, err = delivery.GetEntries[*delivery.Entity](ctx, client, params)
			}

			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}

			return renderEntries(cmd.OutOrStdout(), outputFormat(config.Output), col)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&allPages, "all", false, "fetch every page")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop --all after this many pages (0 for no limit)")

	return cmd
}

func newEntriesGetCommand() *cobra.Command {
	var (
		include int
		locale  string
	)

	cmd := &cobra.Command{
		Use:   "get ENTRY_ID",
		Short: "Get an entry",
		Long:  "Get a single entry with its links resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return constants.ErrResourceIDRequired
			}

			config := loadConfig()

			client, closer, err := createClient(config)
			if err != nil {
				return err
			}
			defer closer()

			params := delivery.NewQueryParams().WithLocale(locale)
			if include >= 0 {
				params.WithInclude(include)
			}

			entry, resErrs, err := delivery.GetEntry[*delivery.Entity](context.Background(), client, id, params)
			if err != nil {
				return fmt.Errorf("failed to get entry: %w", err)
			}

			return renderEntry(cmd.OutOrStdout(), outputFormat(config.Output), &entryResult{Item: entry, Errors: resErrs})
		},
	}

	cmd.Flags().IntVar(&include, "include", -1, "link depth embedded in includes (0-10)")
	cmd.Flags().StringVar(&locale, "locale", "", "locale code")

	return cmd
}
