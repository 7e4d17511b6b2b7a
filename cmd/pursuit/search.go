package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vinayprograms/pursuit/internal/archive"
	"github.com/vinayprograms/pursuit/internal/controller"
)

// Run searches the archive.
func (c *SearchCmd) Run(g *Globals) error {
	if c.Type != "" && !isLogType(c.Type) {
		return fmt.Errorf("unknown log type %q", c.Type)
	}
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	arc, err := archive.Open(archivePath(cfg))
	if err != nil {
		return err
	}
	defer arc.Close()

	hits, err := arc.Search(strings.Join(c.Query, " "), archive.SearchOpts{
		RunID: c.RunID,
		Type:  c.Type,
		Limit: c.Limit,
	})
	if err != nil {
		return err
	}
	printHits(os.Stdout, hits)
	return nil
}

func isLogType(s string) bool {
	for _, t := range controller.StepLogTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

func printHits(w io.Writer, hits []archive.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("no matches"))
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%s %s %s\n",
			accentStyle.Render(h.RunID),
			mutedStyle.Render(fmt.Sprintf("iter %d %s %.2f", h.Iteration, h.Type, h.Score)),
			headingStyle.Render(h.Goal))
		fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(h.Content, "\n", "\n  "))
	}
}
