package graphviz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"text2phenotype.com/bioscope/logger"
)

var ErrUnsupportedFormat = errors.New("graphviz: unsupported output format")

var formats = map[string]bool{
	"jpg": true,
	"png": true,
	"svg": true,
}

var renderLogger = logger.NewLogger("Graphviz")

// Render runs dot on a graph description and returns the image bytes.
func Render(ctx context.Context, dot string, format string) ([]byte, error) {
	if !formats[format] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	proc := logger.Process{
		Executable: "dot",
		Args:       []string{"-T" + format},
		Stdin:      strings.NewReader(dot),
	}
	return proc.Run(ctx, renderLogger)
}
