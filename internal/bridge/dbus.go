package bridge

import (
	"fmt"
	"log"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	BusName       = "com.github.obsindicator"
	ObjectPath    = dbus.ObjectPath("/com/github/obsindicator/Indicator")
	InterfaceName = "com.github.obsindicator.Indicator"
)

// DBusService exposes the bridge on the session bus so host plugins can
// report events without the unix socket
type DBusService struct {
	conn       *dbus.Conn
	dispatcher *Dispatcher
	mu         sync.Mutex
	running    bool
}

func NewDBusService(dispatcher *Dispatcher) *DBusService {
	return &DBusService{dispatcher: dispatcher}
}

func (s *DBusService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("dbus service already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(&dbusMethods{s.dispatcher}, ObjectPath, InterfaceName); err != nil {
		conn.Close()
		return fmt.Errorf("failed to export interface: %w", err)
	}

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to request name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return fmt.Errorf("name %s already owned by another process", BusName)
	}

	s.conn = conn
	s.running = true

	log.Printf("[DBUS] Serving %s on %s", InterfaceName, BusName)

	return nil
}

func (s *DBusService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false

	if s.conn != nil {
		s.conn.ReleaseName(BusName)
		s.conn.Close()
		s.conn = nil
	}

	log.Println("[DBUS] Stopped")

	return nil
}

// dbusMethods holds only the exported bus methods, so Start and Stop are not
// callable over the bus
type dbusMethods struct {
	dispatcher *Dispatcher
}

func (m *dbusMethods) Event(name string) *dbus.Error {
	if err := m.dispatcher.Event(name); err != nil {
		log.Printf("[DBUS] Event %q rejected: %v", name, err)
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m *dbusMethods) Set(key, value string) *dbus.Error {
	if err := m.dispatcher.host.SetSetting(key, value); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m *dbusMethods) Reload() *dbus.Error {
	if err := m.dispatcher.host.ReloadSettings(); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (m *dbusMethods) Status() (string, *dbus.Error) {
	return m.dispatcher.host.EngineStatus(), nil
}
