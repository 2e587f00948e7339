// Package daemon mirrors live edits of a dump tree into the database.
//
// The daemon:
//  1. Performs a full sync from the dump tree into the database
//  2. Watches every dump subdirectory for record and instruction changes
//  3. Debounces rapid updates and applies them as upserts/deletes
//  4. Handles graceful shutdown on context cancellation
//
// Unlike the transactional importer, the daemon is tolerant: a bad record
// file is logged and skipped so one broken edit cannot stall the mirror.
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pantrydb/pantry/internal/db"
	"github.com/pantrydb/pantry/internal/schema"
)

// Notifier receives daemon events. All methods are called from the daemon's
// goroutines and must not block.
type Notifier interface {
	// OnRecordUpserted fires after a record file was applied to the database.
	OnRecordUpserted(table, id string)

	// OnRecordDeleted fires after a record removal was applied.
	OnRecordDeleted(table, id string)

	// OnSyncComplete fires after a full sync pass.
	OnSyncComplete(records int, duration time.Duration)
}

// noopNotifier is used when no Notifier is configured.
type noopNotifier struct{}

func (noopNotifier) OnRecordUpserted(string, string) {}
func (noopNotifier) OnRecordDeleted(string, string) {}
func (noopNotifier) OnSyncComplete(int, time.Duration) {}

// Config holds configuration for the daemon.
type Config struct {
	// DebounceInterval is how long to wait before processing file changes.
	// This batches rapid updates together.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger

	// Notifier receives daemon events; nil means no notifications.
	Notifier Notifier
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
		Notifier:         noopNotifier{},
	}
}

// Daemon watches a dump tree and mirrors its changes into the database.
type Daemon struct {
	db     *db.DB
	dir    string
	config *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // path -> queued-at
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon mirroring dir into database with default config.
// Use Start() to begin watching.
func New(database *db.DB, dir string) (*Daemon, error) {
	return NewWithConfig(database, dir, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(database *db.DB, dir string, config *Config) (*Daemon, error) {
	if database == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if dir == "" {
		return nil, fmt.Errorf("dump directory cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}
	if config.Notifier == nil {
		config.Notifier = noopNotifier{}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		db:          database,
		dir:         dir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins the daemon's operation: an initial full sync, then watching
// every dump subdirectory and applying debounced changes.
//
// This blocks until ctx is cancelled or startup fails.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting watch daemon")

	if err := d.db.InitSchemaContext(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := d.FullSync(ctx); err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}

	for _, name := range watchDirs() {
		sub := filepath.Join(d.dir, name)
		if err := os.MkdirAll(sub, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", sub, err)
		}
		if err := d.watcher.Add(sub); err != nil {
			return fmt.Errorf("failed to watch %s: %w", sub, err)
		}
	}
	d.config.Logger.Printf("Watching %s (%d directories)", d.dir, len(watchDirs()))

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping watch daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.config.Logger.Println("Watch daemon stopped")
	return nil
}

// watchDirs lists the dump subdirectories the daemon watches.
func watchDirs() []string {
	var dirs []string
	for _, t := range schema.Tables() {
		dirs = append(dirs, t.Name)
	}
	return append(dirs, schema.InstructionsDir)
}

// FullSync applies every record and instruction file in the dump tree to
// the database. Per-file failures are logged and skipped. Returns the
// number of records applied.
func (d *Daemon) FullSync(ctx context.Context) (int, error) {
	d.config.Logger.Println("Performing full sync")
	start := time.Now()
	applied := 0

	order, err := schema.ImportOrder()
	if err != nil {
		return 0, err
	}
	for _, t := range order {
		tableDir := filepath.Join(d.dir, t.Name)
		names, err := schema.ListRecordFiles(tableDir)
		if err != nil {
			return applied, fmt.Errorf("failed to list %s: %w", t.Name, err)
		}
		for _, name := range names {
			path := filepath.Join(tableDir, name)
			if err := d.upsertRecord(ctx, t.Name, path); err != nil {
				d.config.Logger.Printf("Warning: failed to sync %s/%s: %v", t.Name, name, err)
				continue
			}
			applied++
		}
		d.config.Logger.Printf("Synced %s: %d records", t.Name, len(names))
	}

	insDir := filepath.Join(d.dir, schema.InstructionsDir)
	names, err := schema.ListInstructionFiles(insDir)
	if err != nil {
		return applied, fmt.Errorf("failed to list instructions: %w", err)
	}
	for _, name := range names {
		path := filepath.Join(insDir, name)
		if err := d.applyInstruction(ctx, path); err != nil {
			d.config.Logger.Printf("Warning: failed to sync instructions/%s: %v", name, err)
			continue
		}
		applied++
	}

	elapsed := time.Since(start)
	d.config.Logger.Printf("Full sync complete: %d files in %v", applied, elapsed.Round(time.Millisecond))
	d.config.Notifier.OnSyncComplete(applied, elapsed)
	return applied, nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			fe, ok := classifyEvent(d.dir, event)
			if !ok {
				continue
			}
			d.config.Logger.Printf("File event: %s %s", fe.Op, fe.Path)
			d.queueChange(fe.Path)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue drains the queue on a debounce-interval ticker.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges applies queued files that have been quiet for at
// least one debounce interval.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		if err := d.applyChange(d.ctx, path); err != nil {
			d.config.Logger.Printf("Error applying %s: %v", path, err)
		}
		delete(d.changeQueue, path)
	}
}

// applyChange mirrors one file's current state into the database: an
// existing file upserts, a missing one deletes.
func (d *Daemon) applyChange(ctx context.Context, path string) error {
	table, ok := classifyPath(d.dir, path)
	if !ok {
		return fmt.Errorf("path %s is not inside the dump tree", path)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if table == schema.InstructionsDir {
			return d.removeInstruction(ctx, path)
		}
		return d.deleteRecord(ctx, table, path)
	}

	if table == schema.InstructionsDir {
		return d.applyInstruction(ctx, path)
	}
	return d.upsertRecord(ctx, table, path)
}

// upsertRecord reads one record file and upserts its row.
func (d *Daemon) upsertRecord(ctx context.Context, table, path string) error {
	switch table {
	case "sources":
		src, err := schema.ReadSourceFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertSourceContext(ctx, src); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, src.ID)

	case "ingredients":
		ing, err := schema.ReadIngredientFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertIngredientContext(ctx, ing); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, ing.ID)

	case "metadata":
		md, err := schema.ReadMetadataFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertMetadataContext(ctx, md); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, md.ID)

	case "recipes":
		rec, err := schema.ReadRecipeFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertRecipeContext(ctx, rec); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, rec.ID)

	case "recipe_ingredients":
		ri, err := schema.ReadRecipeIngredientFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertRecipeIngredientContext(ctx, ri); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, ri.RecipeID+"/"+ri.IngredientID)

	case "recipe_metadata":
		rm, err := schema.ReadRecipeMetadataFile(path)
		if err != nil {
			return err
		}
		if err := d.db.UpsertRecipeMetadataContext(ctx, rm); err != nil {
			return err
		}
		d.config.Notifier.OnRecordUpserted(table, rm.RecipeID+"/"+rm.MetadataID)

	default:
		return fmt.Errorf("unknown table %s", table)
	}
	return nil
}

// deleteRecord removes the row whose record file disappeared. The filename
// stem is the only identity left once the file is gone.
func (d *Daemon) deleteRecord(ctx context.Context, table, path string) error {
	stem := recordStem(path)

	t, _ := schema.TableByName(table)
	if t.Join {
		a, b, err := schema.SplitStem(stem)
		if err != nil {
			return fmt.Errorf("failed to decode join stem %q: %w", stem, err)
		}
		switch table {
		case "recipe_ingredients":
			if err := d.db.DeleteRecipeIngredientContext(ctx, a, b); err != nil {
				return err
			}
		case "recipe_metadata":
			if err := d.db.DeleteRecipeMetadataContext(ctx, a, b); err != nil {
				return err
			}
		}
		d.config.Notifier.OnRecordDeleted(table, a+"/"+b)
		return nil
	}

	id, err := schema.DecodeID(stem)
	if err != nil {
		return fmt.Errorf("failed to decode stem %q: %w", stem, err)
	}
	switch table {
	case "sources":
		err = d.db.DeleteSourceContext(ctx, id)
	case "ingredients":
		err = d.db.DeleteIngredientContext(ctx, id)
	case "metadata":
		err = d.db.DeleteMetadataContext(ctx, id)
	case "recipes":
		err = d.db.DeleteRecipeContext(ctx, id)
	default:
		return fmt.Errorf("unknown table %s", table)
	}
	if err != nil {
		return err
	}
	d.config.Notifier.OnRecordDeleted(table, id)
	return nil
}

// applyInstruction copies an instruction file's text onto its recipe row.
// A file for a recipe the database does not hold yet is left for the next
// sync; record and instruction events can arrive in either order.
func (d *Daemon) applyInstruction(ctx context.Context, path string) error {
	id, err := schema.RecipeIDFromInstructionName(filepath.Base(path))
	if err != nil {
		return err
	}
	text, err := schema.ReadInstructionFile(path)
	if err != nil {
		return err
	}
	found, err := d.db.UpdateRecipeInstructionsContext(ctx, id, text)
	if err != nil {
		return err
	}
	if !found {
		d.config.Logger.Printf("Warning: instruction file for unknown recipe %q", id)
		return nil
	}
	d.config.Notifier.OnRecordUpserted("recipes", id)
	return nil
}

// removeInstruction clears the instructions column when the companion file
// is deleted.
func (d *Daemon) removeInstruction(ctx context.Context, path string) error {
	id, err := schema.RecipeIDFromInstructionName(filepath.Base(path))
	if err != nil {
		return err
	}
	found, err := d.db.UpdateRecipeInstructionsContext(ctx, id, "")
	if err != nil {
		return err
	}
	if found {
		d.config.Notifier.OnRecordUpserted("recipes", id)
	}
	return nil
}

// recordStem strips the extension from a record or instruction filename.
func recordStem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
