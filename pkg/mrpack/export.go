// SPDX-License-Identifier: MPL-2.0

package mrpack

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"mrpack-cli/internal/modrinth"
	"mrpack-cli/internal/ziputil"
	"mrpack-cli/pkg/instance"
)

// State names the phase an export task is in.
type State string

const (
	StateIdle       State = "idle"
	StateCollecting State = "collecting-files"
	StateResolving  State = "resolving-hashes"
	StateQuerying   State = "querying-remote"
	StateBuilding   State = "building-archive"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateAborted    State = "aborted"
)

var (
	// ErrExportInProgress is returned by Run while a previous Run on
	// the same task has not finished. Exports of one instance are
	// strictly serial.
	ErrExportInProgress = errors.New("an export is already in progress")

	// ErrAborted is returned when the export was cancelled. Distinct
	// from failure: nothing went wrong, the caller asked to stop.
	ErrAborted = errors.New("export aborted")
)

// Events carries the observer callbacks of an export. All callbacks
// are optional and are invoked synchronously from the task's goroutine.
type Events struct {
	// OnState fires on every state transition.
	OnState func(State)

	// OnStatus fires with a human-readable description of the current
	// activity.
	OnStatus func(string)

	// OnProgress fires with cumulative and total byte counts while the
	// archive is written.
	OnProgress func(done, total int64)

	// OnFile fires with each archive path as it is added.
	OnFile func(archivePath string)
}

// ExportOptions configures one export run.
type ExportOptions struct {
	IndexOptions

	// OutputPath is where the .mrpack archive lands.
	OutputPath string

	// Filter excludes candidate files from the export. Nil excludes
	// only the built-in defaults (see FilterGlobs).
	Filter FilterFunc

	// AllowedHosts restricts which download hosts metadata-resolved
	// files may point at. Empty uses the Modrinth CDN hosts.
	AllowedHosts []string

	// Client performs the remote hash lookup. Nil uses the production
	// endpoint.
	Client *modrinth.Client

	// Logger receives task diagnostics. Nil uses the default logger.
	Logger *log.Logger

	// Events are the observer callbacks.
	Events Events
}

// ExportTask drives one instance export through the pipeline states.
// A task owns its pending-hash queue and resolved-file map exclusively
// for the duration of a run; concurrent Run calls are rejected.
type ExportTask struct {
	inst     *instance.Instance
	opts     ExportOptions
	resolver *Resolver
	logger   *log.Logger

	running atomic.Bool

	mu    sync.Mutex
	state State
}

// NewExportTask creates a task for the given instance.
func NewExportTask(inst *instance.Instance, opts ExportOptions) *ExportTask {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	client := opts.Client
	if client == nil {
		client = modrinth.NewClient("")
	}
	return &ExportTask{
		inst:     inst,
		opts:     opts,
		resolver: NewResolver(client, opts.AllowedHosts, logger),
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the task's current phase.
func (t *ExportTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *ExportTask) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
	if t.opts.Events.OnState != nil {
		t.opts.Events.OnState(s)
	}
}

func (t *ExportTask) status(msg string) {
	t.logger.Info(msg)
	if t.opts.Events.OnStatus != nil {
		t.opts.Events.OnStatus(msg)
	}
}

// Run executes the export. It returns nil on success, ErrAborted when
// ctx was cancelled, and the underlying failure otherwise. Whatever the
// outcome, no partial archive remains at the output path.
func (t *ExportTask) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrExportInProgress
	}
	defer t.running.Store(false)

	err := t.run(ctx)
	switch {
	case err == nil:
		t.setState(StateSucceeded)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrAborted):
		t.setState(StateAborted)
		t.logger.Warn("export aborted")
		return ErrAborted
	default:
		t.setState(StateFailed)
		t.logger.Error("export failed", "err", err)
	}
	return err
}

func (t *ExportTask) run(ctx context.Context) error {
	gameRoot := t.inst.GameRoot()

	t.setState(StateCollecting)
	t.status("Searching for files...")
	files, err := Collect(gameRoot, t.opts.Filter)
	if err != nil {
		return err
	}

	t.setState(StateResolving)
	t.status("Finding file hashes...")
	resolved, pending, err := t.resolver.ResolveLocal(ctx, t.inst, files, t.opts.Filter)
	if err != nil {
		return err
	}

	// The remote batch query is issued at most once per export, and
	// not at all when local metadata already covered everything.
	if len(pending) > 0 {
		t.setState(StateQuerying)
		t.status("Finding versions for hashes...")
		if err := t.resolver.ResolveRemote(ctx, pending, resolved); err != nil {
			return err
		}
	}

	t.setState(StateBuilding)
	t.status("Adding files...")

	index := BuildIndex(t.opts.IndexOptions, t.inst.Components(), resolved)
	indexData, err := index.Encode()
	if err != nil {
		return err
	}
	if err := ValidateIndex(indexData); err != nil {
		return fmt.Errorf("generated index is invalid: %w", err)
	}

	exclude := make(map[string]struct{}, len(resolved))
	for rel := range resolved {
		exclude[rel] = struct{}{}
	}

	return ziputil.Export(ctx, ziputil.Options{
		OutputPath: t.opts.OutputPath,
		Root:       gameRoot,
		Files:      files,
		Prefix:     OverridesPrefix,
		Exclude:    exclude,
		Extra:      []ziputil.ExtraFile{{Name: IndexFileName, Data: indexData}},
		OnFile:     t.opts.Events.OnFile,
		OnProgress: t.opts.Events.OnProgress,
	})
}
