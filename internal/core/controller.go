package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/chess10kp/obs-indicator/internal/indicator"
	"github.com/chess10kp/obs-indicator/internal/schedule"
)

// ErrAlreadyStarted is returned when an engine is started after one has
// already existed in this process
var ErrAlreadyStarted = errors.New("indicator already started, restart required")

// ErrNoEngine is returned by operations that need a live engine
var ErrNoEngine = errors.New("no indicator engine")

// Engine status values reported to the bridges
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusAbsent  = "absent"
)

// Controller owns the single engine instance of the process and the
// scheduler driving it
type Controller struct {
	mu        sync.Mutex
	engine    *indicator.Engine
	scheduler *schedule.Scheduler
}

func NewController() *Controller {
	return &Controller{}
}

// Start builds the engine and begins ticking immediately. Construction
// failure leaves the controller without an engine.
func (c *Controller) Start(opts indicator.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine != nil {
		log.Printf("[CONTROLLER] Indicator was reloaded, a restart is required")
		return ErrAlreadyStarted
	}

	engine, err := indicator.NewEngine(opts)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	scheduler := schedule.NewScheduler("indicator", engine.Tick)
	if err := scheduler.Start(0); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}

	c.engine = engine
	c.scheduler = scheduler

	log.Printf("[CONTROLLER] Engine started (tick %v)", engine.BaseDelay())
	return nil
}

// Exists reports whether an engine was ever created
func (c *Controller) Exists() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil
}

// Running reports whether the engine exists and has not stopped
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runningLocked()
}

func (c *Controller) runningLocked() bool {
	if c.engine == nil {
		return false
	}
	return c.engine.State() != indicator.StateStopped && c.scheduler.IsRunning()
}

// Status reports StatusRunning, StatusStopped or StatusAbsent
func (c *Controller) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.engine == nil:
		return StatusAbsent
	case c.runningLocked():
		return StatusRunning
	default:
		return StatusStopped
	}
}

// RequestSettingsUpdate forwards raw settings to the live engine
func (c *Controller) RequestSettingsUpdate(raw map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.runningLocked() {
		return ErrNoEngine
	}
	c.engine.RequestSettingsUpdate(raw)
	return nil
}

// Done is closed once the engine has stopped. It is nil without an engine.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.scheduler == nil {
		return nil
	}
	return c.scheduler.Done()
}

// Wait blocks until the engine stops or ctx is done
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	scheduler := c.scheduler
	c.mu.Unlock()

	if scheduler == nil {
		return nil
	}
	return scheduler.Wait(ctx)
}

// Stop cancels the scheduler without waiting for a shutdown tick
func (c *Controller) Stop() {
	c.mu.Lock()
	scheduler := c.scheduler
	c.mu.Unlock()

	if scheduler != nil {
		scheduler.Stop()
	}
}
