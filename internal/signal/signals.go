// Package signal delivers out-of-band stop requests to running chains via
// files under the project's .chainctl/signals directory. A watcher picks
// signals up immediately; a direct stat fallback covers missed events.
package signal

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const stopFile = "stop"

// Manager watches the signals directory of one project.
type Manager struct {
	signalsDir string

	mu         sync.RWMutex
	stopSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager creates a manager rooted at the given .chainctl directory,
// creating the signals subdirectory if needed. A failed watcher setup is
// not fatal: ShouldStop falls back to polling the file directly.
func NewManager(chainctlDir string) (*Manager, error) {
	signalsDir := filepath.Join(chainctlDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	m := &Manager{
		signalsDir: signalsDir,
		done:       make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return m, nil
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return m, nil
	}
	m.watcher = watcher

	go m.watchSignals()

	return m, nil
}

// watchSignals monitors the signals directory for the stop file.
func (m *Manager) watchSignals() {
	for {
		select {
		case <-m.done:
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == stopFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				m.mu.Lock()
				m.stopSignal = true
				m.mu.Unlock()
			}
		case <-m.watcher.Errors:
			// Keep watching.
		}
	}
}

// ShouldStop reports whether a stop signal has been received.
func (m *Manager) ShouldStop() bool {
	// Check the file directly in case the watcher missed the event.
	if _, err := os.Stat(filepath.Join(m.signalsDir, stopFile)); err == nil {
		m.mu.Lock()
		m.stopSignal = true
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopSignal
}

// SendStop creates the stop signal file.
func (m *Manager) SendStop() error {
	path := filepath.Join(m.signalsDir, stopFile)
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes the signal file and resets in-memory state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopSignal = false
	os.Remove(filepath.Join(m.signalsDir, stopFile))
}

// Close shuts down the watcher.
func (m *Manager) Close() {
	close(m.done)
	if m.watcher != nil {
		m.watcher.Close()
	}
}
