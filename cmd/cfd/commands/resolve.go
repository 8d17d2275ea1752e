package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/cda-client/internal/constants"
	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	var failOnErrors bool

	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "Resolve a saved response",
		Long: `Resolve the links of a saved delivery response without contacting the API.

FILE is a collection or single-resource response body; use - to read stdin.
Items, included resources and unresolved links are printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			opts, err := config.decodeOptions(newLogger(config.Verbose))
			if err != nil {
				return err
			}

			return runResolve(cmd.OutOrStdout(), outputFormat(config.Output), data, failOnErrors, opts...)
		},
	}

	cmd.Flags().BoolVar(&failOnErrors, "fail-on-errors", false, "exit with an error when any link is unresolved")

	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" {
		return nil, constants.ErrDocumentPathRequired
	}

	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

func runResolve(w io.Writer, format string, data []byte, failOnErrors bool, opts ...delivery.Option) error {
	col, err := delivery.Decode[*delivery.Entity](data, opts...)
	if err != nil {
		return fmt.Errorf("failed to resolve document: %w", err)
	}

	err = renderEntries(w, format, col)
	if err != nil {
		return err
	}

	if failOnErrors && col.HasErrors() {
		return fmt.Errorf("%w: %d", ErrUnresolvedLinks, len(col.Errors))
	}

	return nil
}
