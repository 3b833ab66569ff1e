package cmd

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/ezerfernandes/rawfence/internal/walker"
)

type statusFunc func(event walker.Event, format string, args ...interface{})

var eventColors = map[walker.Event]*color.Color{ //nolint:gochecknoglobals
	walker.EventCheck: color.New(color.FgCyan),
	walker.EventWrap:  color.New(color.FgYellow),
	walker.EventFix:   color.New(color.FgGreen),
}

func (o *options) createStatus(out io.Writer) {
	if o.cfg != nil && o.cfg.Quiet {
		o.status = func(walker.Event, string, ...interface{}) {}

		return
	}

	o.status = func(event walker.Event, format string, args ...interface{}) {
		if c, ok := eventColors[event]; ok {
			c.Fprintf(out, format+"\n", args...) //nolint:errcheck

			return
		}

		fmt.Fprintf(out, format+"\n", args...)
	}
}

// warn reports a non-fatal problem regardless of the quiet setting.
func warn(out io.Writer, format string, args ...interface{}) {
	color.New(color.FgRed).Fprintf(out, "warning: "+format+"\n", args...) //nolint:errcheck
}
