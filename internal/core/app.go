package core

import (
	"context"
	"fmt"
	"log"
	"maps"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/gotk3/gotk3/glib"
	"github.com/gotk3/gotk3/gtk"

	"github.com/chess10kp/obs-indicator/internal/bridge"
	"github.com/chess10kp/obs-indicator/internal/config"
	"github.com/chess10kp/obs-indicator/internal/icons"
	"github.com/chess10kp/obs-indicator/internal/indicator"
	"github.com/chess10kp/obs-indicator/internal/overlay"
)

// shutdownGrace bounds how long Quit waits for the engine to hide the overlay
const shutdownGrace = time.Second

// App is main application
type App struct {
	config     *config.Config
	configPath string
	sigChan    chan os.Signal
	quitOnce   sync.Once

	status     *indicator.StatusSource
	controller *Controller
	window     *overlay.Window
	iconCache  *icons.Cache

	ipc     *bridge.IPCServer
	dbus    *bridge.DBusService
	watcher *config.Watcher

	mu         sync.Mutex
	appearance map[string]string
}

// NewApp creates a new application. configPath is re-read on reload.
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	return &App{
		config:     cfg,
		configPath: configPath,
		sigChan:    make(chan os.Signal, 1),
		status:     indicator.NewStatusSource(),
		controller: NewController(),
		appearance: cfg.AppearanceCopy(),
	}, nil
}

// Run starts the application and blocks in the GTK main loop
func (a *App) Run() error {
	signal.Notify(a.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-a.sigChan
		log.Printf("Received signal: %v", sig)
		a.Quit()
	}()

	log.Printf("%s starting...", a.config.AppName)

	gtk.Init(nil)

	if err := a.initialize(); err != nil {
		return err
	}

	if a.config.Debug {
		go a.monitorGTKMainLoop()
	}

	gtk.Main()

	return nil
}

func (a *App) initialize() error {
	log.Println("Initializing components...")

	window, err := overlay.NewWindow(a.config.AppName)
	if err != nil {
		return fmt.Errorf("failed to create overlay: %w", err)
	}
	a.window = window

	loader := overlay.NewPixbufLoader(a.config.AssetDir)
	if err := loader.CheckAssets(); err != nil {
		log.Printf("[OVERLAY] %v", err)
	}

	cache, err := icons.NewCache(loader, a.config.IconCacheSize)
	if err != nil {
		return err
	}
	a.iconCache = cache

	for _, p := range indicator.Lint(a.appearance) {
		log.Printf("[CONFIG] %s", p)
	}

	if err := a.controller.Start(indicator.Options{
		Status:    a.status,
		Renderer:  window,
		Icons:     cache,
		Screen:    overlay.NewScreen(window),
		Settings:  a.currentAppearance(),
		BaseDelay: a.config.PollInterval(),
		Debug:     a.config.Debug,
	}); err != nil {
		// The bridges still run so status queries report the engine absent
		log.Printf("Failed to start indicator: %v", err)
	} else {
		go a.quitWhenStopped()
	}

	a.startBridges()

	log.Println("Initialization complete")
	return nil
}

func (a *App) startBridges() {
	dispatcher := bridge.NewDispatcher(a.status, a)

	ipc := bridge.NewIPCServer(dispatcher, a.config.SocketPath)
	if err := ipc.Start(); err != nil {
		log.Printf("Failed to start IPC server: %v", err)
	} else {
		a.ipc = ipc
	}

	if a.config.DBus.Enabled {
		dbus := bridge.NewDBusService(dispatcher)
		if err := dbus.Start(); err != nil {
			log.Printf("Failed to start D-Bus service: %v", err)
		} else {
			a.dbus = dbus
		}
	}

	if a.config.Watch.Enabled && a.configPath != "" {
		watcher, err := config.NewWatcher(a.configPath, a.config.Debounce(), a.applyConfig)
		if err == nil {
			err = watcher.Start()
		}
		if err != nil {
			log.Printf("Failed to watch config: %v", err)
		} else {
			a.watcher = watcher
		}
	}
}

// quitWhenStopped exits the process once the engine reaches its terminal
// state, which happens when the host unloads
func (a *App) quitWhenStopped() {
	done := a.controller.Done()
	if done == nil {
		return
	}
	<-done
	log.Println("Indicator stopped")
	a.Quit()
}

// Quit asks the engine to hide and stop, tears down the bridges and leaves
// the GTK main loop. Safe to call from any goroutine, more than once.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		log.Println("Shutting down...")

		a.status.RequestShutdown()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := a.controller.Wait(ctx); err != nil {
			log.Printf("Engine did not stop in time: %v", err)
			a.controller.Stop()
		}
		cancel()

		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.dbus != nil {
			a.dbus.Stop()
		}
		if a.ipc != nil {
			a.ipc.Stop()
		}

		if a.iconCache != nil {
			hits, misses, rate, size := a.iconCache.GetStats()
			log.Printf("[ICON-CACHE] hits=%d misses=%d rate=%.1f%% size=%d", hits, misses, rate, size)
		}

		glib.IdleAdd(func() {
			if a.window != nil {
				a.window.Destroy()
			}
			gtk.MainQuit()
		})
	})
}

// EngineStatus implements bridge.Host
func (a *App) EngineStatus() string {
	return a.controller.Status()
}

// SetSetting changes one appearance key and requests a settings update with
// the merged map
func (a *App) SetSetting(key, value string) error {
	canonical := indicator.CanonicalKey(key)
	if canonical == "" {
		return fmt.Errorf("unknown setting %q", key)
	}

	a.mu.Lock()
	for k := range a.appearance {
		if indicator.CanonicalKey(k) == canonical {
			delete(a.appearance, k)
		}
	}
	a.appearance[canonical] = value
	raw := maps.Clone(a.appearance)
	a.mu.Unlock()

	return a.controller.RequestSettingsUpdate(raw)
}

// ReloadSettings re-reads the config file and applies its appearance table
func (a *App) ReloadSettings() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return a.replaceAppearance(cfg)
}

func (a *App) applyConfig(cfg *config.Config) {
	if err := a.replaceAppearance(cfg); err != nil {
		log.Printf("[WATCHER] Reload not applied: %v", err)
	}
}

func (a *App) replaceAppearance(cfg *config.Config) error {
	for _, p := range indicator.Lint(cfg.Appearance) {
		log.Printf("[CONFIG] %s", p)
	}

	a.mu.Lock()
	a.appearance = cfg.AppearanceCopy()
	raw := maps.Clone(a.appearance)
	a.mu.Unlock()

	return a.controller.RequestSettingsUpdate(raw)
}

func (a *App) currentAppearance() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return maps.Clone(a.appearance)
}

// monitorGTKMainLoop logs when queued overlay updates stop being applied
func (a *App) monitorGTKMainLoop() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		log.Printf("[MONITOR] Goroutines: %d, Alloc: %d MB, engine: %s",
			runtime.NumGoroutine(), m.Alloc/1024/1024, a.controller.Status())

		responded := make(chan struct{}, 1)
		glib.IdleAdd(func() {
			responded <- struct{}{}
		})

		select {
		case <-responded:
		case <-time.After(2 * time.Second):
			log.Printf("[MONITOR] WARNING: GTK main loop appears to be BLOCKED (callback not executed in 2s)")
		}
	}
}
