package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fonzi/openvpn3-gui/internal/fileutil"
)

// MaxRecentConfigs caps the recent-config list length.
const MaxRecentConfigs = 10

// RecentList persists the most-recently-used VPN config paths as
// newline-delimited text, most recent first, deduplicated by exact path.
// It is safe for concurrent use.
type RecentList struct {
	path    string
	mu      sync.RWMutex
	entries []string
}

// NewRecentList creates a RecentList backed by the given file. A
// missing or unreadable file yields an empty list.
func NewRecentList(path string) *RecentList {
	return &RecentList{
		path:    path,
		entries: loadRecent(path),
	}
}

func loadRecent(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var entries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, line)
		if len(entries) == MaxRecentConfigs {
			break
		}
	}
	return entries
}

// Add moves the path to the front of the list, dropping any earlier
// occurrence, and persists the result.
func (r *RecentList) Add(configPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]string, 0, len(r.entries)+1)
	entries = append(entries, configPath)
	for _, e := range r.entries {
		if e == configPath {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) > MaxRecentConfigs {
		entries = entries[:MaxRecentConfigs]
	}
	r.entries = entries

	return r.save()
}

// Entries returns the list, most recent first.
func (r *RecentList) Entries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	copy(out, r.entries)
	return out
}

// Clear removes all entries and persists the empty list.
func (r *RecentList) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return r.save()
}

// save writes the list to disk; callers must hold the lock.
func (r *RecentList) save() error {
	content := strings.Join(r.entries, "\n")
	if err := fileutil.AtomicWrite(r.path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to save recent configs: %w", err)
	}
	return nil
}
