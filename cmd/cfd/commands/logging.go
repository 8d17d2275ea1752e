package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr/funcr"

	"github.com/fivetwenty-io/cda-client/pkg/delivery"
)

// newLogger returns a stderr logger when verbose, or a logger that discards
// everything.
func newLogger(verbose bool) delivery.Logger {
	if !verbose {
		return delivery.NopLogger{}
	}

	return newWriterLogger(os.Stderr)
}

func newWriterLogger(w io.Writer) delivery.Logger {
	sink := funcr.New(func(prefix, args string) {
		if prefix != "" {
			_, _ = fmt.Fprintln(w, prefix, args)

			return
		}

		_, _ = fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: 1})

	return delivery.NewLogrLogger(sink.WithName("cfd"))
}
