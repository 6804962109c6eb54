package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"calsched/internal/config"
	"calsched/internal/event"
	"calsched/internal/exchange"
	"calsched/internal/notify"
	"calsched/internal/scheduler"
	"calsched/internal/watcher"
	"calsched/pkg/logger"
)

// App wires the scheduler core to its file-import and notification
// adapters.
type App struct {
	config    *config.Config
	log       *logrus.Logger
	scheduler *scheduler.Scheduler
	watcher   *watcher.ImportWatcher
	notifier  notify.Notifier
	lead      time.Duration

	// dirCalendars maps watched import directories to calendar names.
	dirCalendars map[string]string

	// announced tracks which event starts were already notified, keyed to
	// each start instant so stale entries can be pruned.
	announced map[string]time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewApp creates an uninitialized application.
func NewApp() *App {
	return &App{
		dirCalendars: make(map[string]string),
		announced:    make(map[string]time.Time),
		stopChan:     make(chan struct{}),
	}
}

// Initialize loads configuration and sets up the scheduler, watcher, and
// notifier.
func (a *App) Initialize(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = cfg
	a.log = logger.New(cfg.Logging.Level)

	a.scheduler = scheduler.New()
	for _, cal := range cfg.Calendars {
		if err := a.scheduler.CreateCalendar(cal.Name, cal.Timezone); err != nil {
			return fmt.Errorf("failed to create calendar %q: %w", cal.Name, err)
		}
		for _, dir := range cal.ImportDirs {
			a.dirCalendars[filepath.Clean(dir)] = cal.Name
		}
	}
	if err := a.scheduler.Use(cfg.DefaultCalendar); err != nil {
		return err
	}
	a.log.WithField("calendars", len(cfg.Calendars)).Info("scheduler initialized")

	a.lead, err = cfg.Notification.LeadDuration()
	if err != nil {
		return err
	}
	if cfg.Notification.Enabled {
		notifier, err := notify.NewDBusNotifier(cfg.Notification.DurationMS)
		if err != nil {
			a.log.WithError(err).Warn("desktop notifications unavailable")
		} else {
			a.notifier = notifier
		}
	}

	if len(a.dirCalendars) > 0 {
		a.watcher, err = watcher.NewImportWatcher()
		if err != nil {
			return fmt.Errorf("failed to create import watcher: %w", err)
		}
		for dir := range a.dirCalendars {
			if err := a.watcher.AddDirectory(dir, a.handleImportFile); err != nil {
				a.log.WithError(err).WithField("dir", dir).Warn("skipping import directory")
				continue
			}
			a.log.WithField("dir", dir).Info("watching import directory")
		}
	}

	return nil
}

// Start performs the initial import scan and launches the notifier loop.
func (a *App) Start() {
	a.scanImportDirs()

	a.wg.Add(1)
	go a.notifyLoop()
}

// Stop shuts the adapters down and waits for the notifier loop.
func (a *App) Stop() {
	close(a.stopChan)
	if a.watcher != nil {
		a.watcher.Stop()
	}
	a.wg.Wait()
	if a.notifier != nil {
		a.notifier.Close()
	}
}

// scanImportDirs imports interchange files that already exist in the
// watched directories.
func (a *App) scanImportDirs() {
	for dir := range a.dirCalendars {
		entries, err := os.ReadDir(dir)
		if err != nil {
			a.log.WithError(err).WithField("dir", dir).Warn("cannot scan import directory")
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !watcher.IsImportFile(entry.Name()) {
				continue
			}
			a.handleImportFile(filepath.Join(dir, entry.Name()))
		}
	}
}

// handleImportFile parses one interchange file and feeds its events into
// the directory's calendar, skipping conflicts.
func (a *App) handleImportFile(path string) {
	name, ok := a.dirCalendars[filepath.Clean(filepath.Dir(path))]
	if !ok {
		return
	}
	cal, err := a.scheduler.Calendar(name)
	if err != nil {
		a.log.WithError(err).Error("import target missing")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		a.log.WithError(err).WithField("file", path).Error("cannot open import file")
		return
	}
	defer file.Close()

	var events []event.Event
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		events, err = exchange.ReadCSV(file, cal.Location())
	case ".ics":
		events, err = exchange.ReadICS(file, cal.Location())
	default:
		return
	}
	if err != nil {
		a.log.WithError(err).WithField("file", path).Error("import failed")
		return
	}

	added, skipped, err := a.scheduler.Import(name, events)
	if err != nil {
		a.log.WithError(err).WithField("file", path).Error("import failed")
		return
	}
	a.log.WithFields(logrus.Fields{
		"file":     path,
		"calendar": name,
		"added":    added,
		"skipped":  skipped,
	}).Info("imported events")
}

// notifyLoop announces events starting within the lead window, checking
// once a minute.
func (a *App) notifyLoop() {
	defer a.wg.Done()
	if a.notifier == nil {
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	a.announceUpcoming(time.Now())
	for {
		select {
		case <-a.stopChan:
			return
		case now := <-ticker.C:
			a.announceUpcoming(now)
		}
	}
}

// announceUpcoming notifies each event starting in [now, now+lead] exactly
// once.
func (a *App) announceUpcoming(now time.Time) {
	for _, name := range a.scheduler.CalendarNames() {
		cal, err := a.scheduler.Calendar(name)
		if err != nil {
			continue
		}
		for _, e := range cal.EventsInRange(now, now.Add(a.lead)) {
			if e.Start.Before(now) {
				continue
			}
			key := name + "|" + e.Subject + "|" + e.Start.UTC().Format(time.RFC3339)
			if _, done := a.announced[key]; done {
				continue
			}
			if err := a.notifier.Announce(e, a.lead); err != nil {
				a.log.WithError(err).Warn("notification failed")
				continue
			}
			a.announced[key] = e.Start
		}
	}
	a.pruneAnnounced(now)
}

// pruneAnnounced drops dedupe entries for events that have already started,
// so the map does not grow for the lifetime of the daemon.
func (a *App) pruneAnnounced(now time.Time) {
	for key, start := range a.announced {
		if start.Before(now) {
			delete(a.announced, key)
		}
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: XDG lookup)")
	writeDefault := flag.Bool("write-default-config", false, "write a default config file and exit")
	flag.Parse()

	if *writeDefault {
		path, err := config.WriteDefaultConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	app := NewApp()
	if err := app.Initialize(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	app.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	app.log.Info("shutting down")
	app.Stop()
}
