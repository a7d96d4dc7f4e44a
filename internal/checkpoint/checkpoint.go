// Package checkpoint snapshots and restores the world store's on-disk
// tree. Checkpoints are plain directory copies keyed by tick, so a
// restore is exact and inspectable with ordinary tools.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tickPrefix   = "tick_"
	backupPrefix = "backup_"
)

type Manager struct {
	storeRoot string
	dir       string
	log       *zap.Logger
	now       func() time.Time
}

// Info describes one stored checkpoint. Tick is -1 for restore backups,
// which are not tick-keyed.
type Info struct {
	ID        string
	Tick      int
	CreatedAt time.Time
	Size      int64
}

func NewManager(storeRoot, dir string, log *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	return &Manager{storeRoot: storeRoot, dir: dir, log: log, now: time.Now}, nil
}

// Create snapshots the store tree under a tick-keyed checkpoint. An
// existing checkpoint for the tick is an error, never a silent overwrite.
func (m *Manager) Create(tick int) (string, error) {
	id := fmt.Sprintf("%s%d", tickPrefix, tick)
	dst := filepath.Join(m.dir, id)
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("checkpoint %s already exists", id)
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking checkpoint %s: %w", id, err)
	}

	if err := copyTree(m.storeRoot, dst); err != nil {
		os.RemoveAll(dst)
		return "", fmt.Errorf("creating checkpoint %s: %w", id, err)
	}
	m.log.Info("checkpoint created", zap.String("id", id), zap.Int("tick", tick))
	return id, nil
}

// Restore replaces the store tree with the named checkpoint's contents.
// Unless backup is false, the current tree is first saved as a
// timestamped backup checkpoint so a bad restore is recoverable.
func (m *Manager) Restore(id string, backup bool) (backupID string, err error) {
	src := filepath.Join(m.dir, id)
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("checkpoint %s not found", id)
	}

	if backup {
		backupID = fmt.Sprintf("%s%s_%s", backupPrefix,
			m.now().UTC().Format("20060102T150405"),
			uuid.NewString()[:8])
		if err := copyTree(m.storeRoot, filepath.Join(m.dir, backupID)); err != nil {
			return "", fmt.Errorf("backing up current state: %w", err)
		}
	}

	if err := os.RemoveAll(m.storeRoot); err != nil {
		return backupID, fmt.Errorf("clearing store tree: %w", err)
	}
	if err := copyTree(src, m.storeRoot); err != nil {
		return backupID, fmt.Errorf("restoring checkpoint %s: %w", id, err)
	}
	m.log.Info("checkpoint restored", zap.String("id", id), zap.String("backup", backupID))
	return backupID, nil
}

// List returns all checkpoints, tick-keyed ones first in ascending tick
// order, then backups by name.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint directory: %w", err)
	}
	var infos []Info
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info := Info{ID: e.Name(), Tick: -1}
		if tick, ok := parseTickID(e.Name()); ok {
			info.Tick = tick
		} else if !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		if fi, err := e.Info(); err == nil {
			info.CreatedAt = fi.ModTime()
		}
		info.Size = treeSize(filepath.Join(m.dir, e.Name()))
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		if (infos[i].Tick >= 0) != (infos[j].Tick >= 0) {
			return infos[i].Tick >= 0
		}
		if infos[i].Tick != infos[j].Tick {
			return infos[i].Tick < infos[j].Tick
		}
		return infos[i].ID < infos[j].ID
	})
	return infos, nil
}

// Cleanup removes tick-keyed checkpoints beyond the newest keepLastN,
// oldest first. A failed deletion is logged and skipped so one stuck
// directory does not block pruning the rest. Backups are never pruned.
func (m *Manager) Cleanup(keepLastN int) (removed int, err error) {
	infos, err := m.List()
	if err != nil {
		return 0, err
	}
	var ticked []Info
	for _, info := range infos {
		if info.Tick >= 0 {
			ticked = append(ticked, info)
		}
	}
	if len(ticked) <= keepLastN {
		return 0, nil
	}
	for _, info := range ticked[:len(ticked)-keepLastN] {
		if rmErr := os.RemoveAll(filepath.Join(m.dir, info.ID)); rmErr != nil {
			m.log.Warn("could not remove checkpoint",
				zap.String("id", info.ID), zap.Error(rmErr))
			continue
		}
		removed++
	}
	return removed, nil
}

func parseTickID(name string) (int, bool) {
	if !strings.HasPrefix(name, tickPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, tickPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func treeSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if fi, err := d.Info(); err == nil {
			total += fi.Size()
		}
		return nil
	})
	return total
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
