package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/divaparadises/studio/internal/log"
)

// Backup schedules, in standard cron syntax.
const (
	DailySchedule  = "0 2 * * *"
	WeeklySchedule = "0 1 * * 0"
)

// ErrUnknownModule is returned when backing up a module that is not
// configured.
var ErrUnknownModule = errors.New("unknown module")

// Module is a local directory whose subdirectories get backed up.
type Module struct {
	Name        string
	Description string
	Subdirs     []string
}

// FolderName is the Drive folder holding the module's backups.
func (m Module) FolderName() string { return m.Name + " - " + m.Description }

// DefaultModules are the generation modules of the AI system tree.
var DefaultModules = []Module{
	{Name: "01_Image_Generation", Description: "AI Generated Images", Subdirs: []string{"data", "outputs"}},
	{Name: "02_Video_Generation", Description: "AI Generated Videos", Subdirs: []string{"data", "outputs"}},
	{Name: "03_Audio_Generation", Description: "AI Generated Audio", Subdirs: []string{"data", "outputs"}},
	{Name: "05_Text_Generation", Description: "AI Generated Text", Subdirs: []string{"data", "outputs"}},
}

// Status summarizes the backup activity of a Workflow.
type Status struct {
	Log           []LogEntry `json:"sync_log"`
	LastBackup    time.Time  `json:"last_backup"`
	ScheduledJobs int        `json:"scheduled_jobs"`
}

// Workflow backs the module directories under a local base up to a root
// folder on Drive, on demand or on a cron schedule.
type Workflow struct {
	store   Store
	sync    *Syncer
	base    string
	root    string
	modules []Module
	cron    *cron.Cron
	now     func() time.Time

	mu         sync.Mutex
	rootID     string
	lastBackup time.Time
}

// NewWorkflow returns a workflow backing base up under the Drive folder
// root.
func NewWorkflow(store Store, base, root string, modules ...Module) *Workflow {
	if len(modules) == 0 {
		modules = DefaultModules
	}
	return &Workflow{
		store:   store,
		sync:    NewSyncer(store),
		base:    base,
		root:    root,
		modules: modules,
		cron:    cron.New(),
		now:     time.Now,
	}
}

func (w *Workflow) module(name string) (Module, bool) {
	for _, m := range w.modules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

func (w *Workflow) rootFolder(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rootID != "" {
		return w.rootID, nil
	}
	f, err := w.store.EnsureFolder(ctx, w.root, "")
	if err != nil {
		return "", err
	}
	w.rootID = f.ID
	return f.ID, nil
}

// CreateStructure lays out the root folder with one folder per module,
// each holding a folder for the current month.
func (w *Workflow) CreateStructure(ctx context.Context) (string, error) {
	rootID, err := w.rootFolder(ctx)
	if err != nil {
		return "", err
	}
	month := w.now().Format("2006-01")
	for _, m := range w.modules {
		mf, err := w.store.EnsureFolder(ctx, m.FolderName(), rootID)
		if err != nil {
			return rootID, err
		}
		if _, err := w.store.EnsureFolder(ctx, month, mf.ID); err != nil {
			return rootID, err
		}
		log.Infof("structure: %s/%s", m.Name, month)
	}
	return rootID, nil
}

// BackupModule syncs every existing subdirectory of the named module into a
// folder for today's date.
func (w *Workflow) BackupModule(ctx context.Context, name string) error {
	m, ok := w.module(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	dir := filepath.Join(w.base, m.Name)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("module %s: %w", name, err)
	}
	rootID, err := w.rootFolder(ctx)
	if err != nil {
		return err
	}
	mf, err := w.store.EnsureFolder(ctx, m.FolderName(), rootID)
	if err != nil {
		return err
	}
	day, err := w.store.EnsureFolder(ctx, w.now().Format(time.DateOnly), mf.ID)
	if err != nil {
		return err
	}
	for _, sub := range m.Subdirs {
		path := filepath.Join(dir, sub)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		log.Infof("backing up %s/%s", m.Name, sub)
		if _, err := w.sync.ToDrive(ctx, path, day.ID); err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
	}
	return nil
}

// Backup backs every module up. A failing module does not stop the others;
// all failures are returned together.
func (w *Workflow) Backup(ctx context.Context) error {
	log.Infof("full backup started")
	var errs []error
	for _, m := range w.modules {
		if err := w.BackupModule(ctx, m.Name); err != nil {
			log.Warnf("backup of %s failed: %v", m.Name, err)
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	w.mu.Lock()
	w.lastBackup = w.now()
	w.mu.Unlock()
	log.Infof("full backup completed")
	return errors.Join(errs...)
}

// Schedule runs Backup on the cron spec once Start is called.
func (w *Workflow) Schedule(ctx context.Context, spec string) (cron.EntryID, error) {
	id, err := w.cron.AddFunc(spec, func() {
		if err := w.Backup(ctx); err != nil {
			log.Errorf("scheduled backup: %v", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("schedule %q: %w", spec, err)
	}
	log.Infof("backup scheduled: %s", spec)
	return id, nil
}

// Start runs the scheduler in the background.
func (w *Workflow) Start() { w.cron.Start() }

// Stop halts the scheduler and waits for a running backup to finish.
func (w *Workflow) Stop() {
	<-w.cron.Stop().Done()
}

// Status reports the sync log, the end of the last full backup and the
// number of scheduled jobs.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	last := w.lastBackup
	w.mu.Unlock()
	return Status{
		Log:           w.sync.Log(),
		LastBackup:    last,
		ScheduledJobs: len(w.cron.Entries()),
	}
}
