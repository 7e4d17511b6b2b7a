package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/replay"
)

// Run renders one or more transcripts.
func (c *ReplayCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}
	paths, err := resolveTranscripts(cfg, c.Sessions)
	if err != nil {
		return err
	}
	interactive := !c.NoPager && isTerminal(os.Stdout)

	if len(paths) > 1 {
		if c.Follow {
			return fmt.Errorf("--follow takes a single transcript")
		}
		m := replay.NewMulti(os.Stdout, c.Verbose)
		if interactive {
			return m.ReplayFilesInteractive(paths)
		}
		return m.ReplayFiles(paths)
	}

	r := replay.New(os.Stdout, c.Verbose)
	switch {
	case c.Follow && interactive:
		return r.ReplayFileLive(paths[0])
	case interactive:
		return r.ReplayFileInteractive(paths[0])
	default:
		return r.ReplayFile(paths[0])
	}
}

// resolveTranscripts expands glob patterns and maps bare run IDs to their
// transcript in the session directory.
func resolveTranscripts(cfg *config.Config, args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[") {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no transcripts match %q", arg)
			}
			paths = append(paths, matches...)
			continue
		}
		if _, err := os.Stat(arg); err == nil {
			paths = append(paths, arg)
			continue
		}
		byID := filepath.Join(sessionDir(cfg), arg+".jsonl")
		if _, err := os.Stat(byID); err != nil {
			return nil, fmt.Errorf("no transcript for %q", arg)
		}
		paths = append(paths, byID)
	}
	return paths, nil
}
