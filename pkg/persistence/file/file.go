// Package file provides file-based persistence for cycle history. Each
// record is a JSON file under <root>/cycles/<channel>/.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/operion-triggered/pkg/models"
	"github.com/dukex/operion-triggered/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) channelDir(channelID string) string {
	return filepath.Join(fp.root, "cycles", url.PathEscape(channelID))
}

func (fp *Persistence) SaveCycle(_ context.Context, record *models.CycleRecord) error {
	if err := persistence.Validate(record); err != nil {
		return persistence.NewRecordError("Save", "", err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	dir := fp.channelDir(record.ChannelID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return persistence.NewRecordError("Save", record.ID, fmt.Errorf("failed to create directory: %w", err))
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return persistence.NewRecordError("Save", record.ID, fmt.Errorf("failed to marshal cycle: %w", err))
	}

	path := filepath.Join(dir, url.PathEscape(record.ID)+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return persistence.NewRecordError("Save", record.ID, fmt.Errorf("failed to write cycle file: %w", err))
	}

	return nil
}

func (fp *Persistence) CycleByID(_ context.Context, id string) (*models.CycleRecord, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(fp.root, "cycles", "*", url.PathEscape(id)+".json"))
	if err != nil {
		return nil, persistence.NewRecordError("CycleByID", id, err)
	}

	if len(matches) == 0 {
		return nil, persistence.NewRecordError("CycleByID", id, persistence.ErrCycleNotFound)
	}

	record, err := readCycle(matches[0])
	if err != nil {
		return nil, persistence.NewRecordError("CycleByID", id, err)
	}

	return record, nil
}

func (fp *Persistence) Cycles(_ context.Context, channelID string, limit int) ([]*models.CycleRecord, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	dir := fp.channelDir(channelID)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return make([]*models.CycleRecord, 0), nil
	}

	if err != nil {
		return nil, persistence.NewRecordError("Cycles", "", fmt.Errorf("failed to list cycles: %w", err))
	}

	records := make([]*models.CycleRecord, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		record, err := readCycle(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, persistence.NewRecordError("Cycles", "", err)
		}

		records = append(records, record)
	}

	slices.SortFunc(records, func(a, b *models.CycleRecord) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	if limit = persistence.NormalizeLimit(limit); len(records) > limit {
		records = records[:limit]
	}

	return records, nil
}

func readCycle(path string) (*models.CycleRecord, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from the persistence root
	if err != nil {
		return nil, fmt.Errorf("failed to read cycle file: %w", err)
	}

	var record models.CycleRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cycle: %w", err)
	}

	return &record, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
