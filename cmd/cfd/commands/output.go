package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

const (
	maxSummaryLength = 60
	maxValueLength   = 24
	dumpMaxDepth     = 10
)

// outputFormat returns format, or table on a terminal and json otherwise.
func outputFormat(format string) string {
	if format != "" {
		return format
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return constants.FormatTable
	}

	return constants.FormatJSON
}

// dumper prints Go values with cycles marked instead of followed.
func dumper() *spew.ConfigState {
	return &spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                dumpMaxDepth,
		DisableMethods:          true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
}

// encode writes value in a structured format. It reports false for table.
func encode(w io.Writer, format string, value any) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return true, encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(value)
	case constants.FormatDump:
		dumper().Fdump(w, value)

		return true, nil
	case constants.FormatTable:
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", ErrUnknownOutputFormat, format)
	}
}

// renderEntries prints a collection of hydrated entries.
func renderEntries(w io.Writer, format string, col *delivery.Collection[*delivery.Entity]) error {
	done, err := encode(w, format, col)
	if done {
		return err
	}

	if len(col.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No entries found")
	} else {
		err = renderEntityTable(w, col.Items)
		if err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "Showing %d of %d (skip %d), %d included entries, %d included assets\n",
		len(col.Items), col.Total, col.Skip, len(col.IncludedEntries), len(col.IncludedAssets))

	return renderResolutionErrors(w, col.Errors)
}

// entryResult is the printed form of a single fetched entry.
type entryResult struct {
	Item   *delivery.Entity           `json:"item"             yaml:"item"`
	Errors []delivery.ResolutionError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func renderEntry(w io.Writer, format string, result *entryResult) error {
	done, err := encode(w, format, result)
	if done {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	_ = table.Append([]string{"ID", result.Item.Sys.ID})
	_ = table.Append([]string{"Type", result.Item.Sys.Type})
	_ = table.Append([]string{"Content Type", valueOrNA(result.Item.ContentTypeID())})

	for _, name := range slices.Sorted(maps.Keys(result.Item.Fields)) {
		_ = table.Append([]string{"fields." + name, summarizeValue(result.Item.Fields[name], maxSummaryLength)})
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return renderResolutionErrors(w, result.Errors)
}

func renderAssets(w io.Writer, format string, col *delivery.Collection[*delivery.Asset]) error {
	done, err := encode(w, format, col)
	if done {
		return err
	}

	if len(col.Items) == 0 {
		_, _ = fmt.Fprintln(w, "No assets found")

		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Title", "File", "Content Type", "Size")

	for _, asset := range col.Items {
		fileName, contentType, size := constants.NotAvailable, constants.NotAvailable, constants.NotAvailable

		if asset.File != nil {
			fileName = asset.File.FileName
			contentType = asset.File.ContentType

			if asset.File.Details != nil {
				size = strconv.FormatInt(asset.File.Details.Size, 10)
			}
		}

		_ = table.Append([]string{asset.Sys.ID, valueOrNA(asset.Title), fileName, contentType, size})
	}

	err = table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintf(w, "Showing %d of %d (skip %d)\n", len(col.Items), col.Total, col.Skip)

	return nil
}

func renderEntityTable(w io.Writer, entities []*delivery.Entity) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Type", "Content Type", "Fields")

	for _, entity := range entities {
		_ = table.Append([]string{
			entity.Sys.ID,
			entity.Sys.Type,
			valueOrNA(entity.ContentTypeID()),
			summarizeFields(entity),
		})
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func renderResolutionErrors(w io.Writer, resErrs []delivery.ResolutionError) error {
	if len(resErrs) == 0 {
		return nil
	}

	_, _ = fmt.Fprintln(w, "Unresolved links:")

	table := tablewriter.NewWriter(w)
	table.Header("Link Type", "ID", "Reason")

	for _, resErr := range resErrs {
		_ = table.Append([]string{resErr.LinkType, resErr.ID, resErr.Reason})
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// summarizeFields renders the fields of an entity as "name=value" pairs in
// name order.
func summarizeFields(entity *delivery.Entity) string {
	parts := make([]string, 0, len(entity.Fields))

	for _, name := range slices.Sorted(maps.Keys(entity.Fields)) {
		parts = append(parts, name+"="+summarizeValue(entity.Fields[name], maxValueLength))
	}

	return truncate(strings.Join(parts, ", "), maxSummaryLength)
}

func summarizeValue(value any, limit int) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case *delivery.Entity:
		return "-> " + typed.String()
	case string:
		return strconv.Quote(truncate(typed, limit))
	case []any:
		return fmt.Sprintf("[%d items]", len(typed))
	case map[string]any:
		return fmt.Sprintf("{%d keys}", len(typed))
	default:
		return truncate(fmt.Sprint(typed), limit)
	}
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}

	return string(runes[:limit-1]) + "…"
}
