package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/vinayprograms/agentkit/telemetry"

	"github.com/vinayprograms/pursuit/internal/archive"
	"github.com/vinayprograms/pursuit/internal/checkpoint"
	"github.com/vinayprograms/pursuit/internal/config"
	"github.com/vinayprograms/pursuit/internal/controller"
	"github.com/vinayprograms/pursuit/internal/driver"
	"github.com/vinayprograms/pursuit/internal/publish"
	"github.com/vinayprograms/pursuit/internal/replay"
	"github.com/vinayprograms/pursuit/internal/session"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// loadConfig reads the config file. Without an explicit path a missing
// pursuit.toml yields the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	cfg, err := config.LoadDefault()
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// interval picks the flag value over the configured one.
func interval(cfg *config.Config, flag time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	return cfg.Interval()
}

// Storage layout under the configured base path.
func sessionDir(cfg *config.Config) string    { return filepath.Join(cfg.StoragePath(), "sessions") }
func checkpointDir(cfg *config.Config) string { return filepath.Join(cfg.StoragePath(), "checkpoints") }
func archivePath(cfg *config.Config) string   { return filepath.Join(cfg.StoragePath(), "archive.bleve") }

// runtime holds the persistence and fan-out wired around a scheduler.
type runtime struct {
	sessions    *session.Manager
	store       *session.FileStore
	checkpoints *checkpoint.Store
	archive     *archive.Archive
	publisher   *publish.Publisher
	telemetry   telemetry.Exporter
	live        *replay.Live
}

// openRuntime opens every store under the storage path. live may be nil.
func openRuntime(cfg *config.Config, live io.Writer, verbosity int) (*runtime, error) {
	rt := &runtime{}

	var err error
	if rt.telemetry, err = newTelemetry(cfg); err != nil {
		return nil, err
	}

	if rt.store, err = session.NewFileStore(sessionDir(cfg)); err != nil {
		rt.Close()
		return nil, err
	}
	rt.sessions = session.NewManager(rt.store)

	if rt.checkpoints, err = checkpoint.NewStore(checkpointDir(cfg)); err != nil {
		rt.Close()
		return nil, err
	}

	if rt.archive, err = archive.Open(archivePath(cfg)); err != nil {
		rt.Close()
		return nil, err
	}

	rt.publisher = publish.Nop()
	if url := cfg.GetNATSURL(); url != "" {
		if rt.publisher, err = publish.Connect(url, cfg.NATS.Subject); err != nil {
			rt.Close()
			return nil, err
		}
	}

	if live != nil {
		rt.live = replay.NewLive(live, verbosity)
	}
	return rt, nil
}

// observers returns the observers in notification order: output first,
// then persistence, then fan-out.
func (rt *runtime) observers() []driver.Observer {
	var obs []driver.Observer
	if rt.live != nil {
		obs = append(obs, rt.live)
	}
	return append(obs,
		session.NewRecorder(rt.sessions),
		checkpoint.NewRecorder(rt.checkpoints),
		rt.publisher,
		archive.NewIndexer(rt.archive),
		driver.ObserverFunc(rt.logStatus),
	)
}

// logStatus forwards status changes to the telemetry exporter.
func (rt *runtime) logStatus(_ context.Context, prev, next controller.State) error {
	if next.RunID == "" || (prev.Status == next.Status && prev.RunID == next.RunID) {
		return nil
	}
	rt.telemetry.LogEvent("run_"+string(next.Status), map[string]interface{}{
		"run_id":    next.RunID,
		"iteration": next.Iteration,
		"reason":    next.Reason,
		"progress":  next.Progress(),
	})
	return nil
}

// scheduler creates a scheduler over agent with every observer attached.
func (rt *runtime) scheduler(agent *controller.Agent, every time.Duration) *driver.Scheduler {
	return driver.New(agent, every, rt.observers()...)
}

// latest loads the newest checkpoint of a run.
func (rt *runtime) latest(runID string) (controller.State, error) {
	cp, err := rt.checkpoints.Latest(runID)
	if err != nil {
		return controller.State{}, err
	}
	return cp.State, nil
}

func (rt *runtime) Close() error {
	var errs []error
	if rt.publisher != nil {
		errs = append(errs, rt.publisher.Close())
	}
	if rt.archive != nil {
		errs = append(errs, rt.archive.Close())
	}
	if rt.telemetry != nil {
		rt.telemetry.Close()
	}
	return errors.Join(errs...)
}

func newTelemetry(cfg *config.Config) (telemetry.Exporter, error) {
	if !cfg.Telemetry.Enabled {
		return telemetry.NewNoopExporter(), nil
	}
	exp, err := telemetry.NewExporter(cfg.Telemetry.Protocol, cfg.Telemetry.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry exporter: %w", err)
	}
	return exp, nil
}

// printOutcome writes the final status line of a run.
func printOutcome(w io.Writer, st controller.State) {
	fmt.Fprintf(w, "\nrun %s: %s", st.RunID, st.Status)
	if st.Reason != "" {
		fmt.Fprintf(w, " (%s)", st.Reason)
	}
	fmt.Fprintf(w, " after %d iteration(s), progress %.0f%%\n", st.Iteration, st.Progress()*100)
}
