package bridge

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"sync"
)

// IPCServer accepts bridge messages on a unix socket, one message per line.
// Every message gets a reply line: the result, or "error: <reason>".
type IPCServer struct {
	dispatcher *Dispatcher
	socketPath string
	listener   net.Listener
	mu         sync.Mutex
	running    bool
	wg         sync.WaitGroup
}

func NewIPCServer(dispatcher *Dispatcher, socketPath string) *IPCServer {
	return &IPCServer{
		dispatcher: dispatcher,
		socketPath: socketPath,
	}
}

func (s *IPCServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("IPC server already running")
	}

	// Remove stale socket file from a previous run
	if _, err := os.Stat(s.socketPath); err == nil {
		os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket listener: %w", err)
	}

	s.listener = listener
	s.running = true

	log.Printf("[IPC] Listening on %s", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

func (s *IPCServer) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *IPCServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.isRunning() {
				return
			}
			log.Printf("[IPC] Error accepting connection: %v", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *IPCServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		reply, err := s.dispatcher.Handle(message)
		if err != nil {
			log.Printf("[IPC] %q failed: %v", message, err)
			reply = "error: " + err.Error()
		}

		if _, err := fmt.Fprintln(conn, reply); err != nil {
			log.Printf("[IPC] Error writing reply: %v", err)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		log.Printf("[IPC] Error reading from connection: %v", err)
	}
}

// Stop closes the listener, waits for the accept loop to exit and removes
// the socket file
func (s *IPCServer) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	err := s.listener.Close()
	s.mu.Unlock()

	s.wg.Wait()

	if _, statErr := os.Stat(s.socketPath); statErr == nil {
		os.Remove(s.socketPath)
	}

	log.Println("[IPC] Stopped")
	return err
}
