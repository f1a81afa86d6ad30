package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DeliveryLedger records which review weeks have already been delivered by
// the scheduler so a restarted daemon does not post the same week twice.
type DeliveryLedger struct {
	filePath  string
	delivered map[string]time.Time
	mu        sync.RWMutex
	maxAge    time.Duration
}

// DeliveredWeek is one ledger entry, keyed by the Monday of the week.
type DeliveredWeek struct {
	WeekStart   string    `json:"week_start"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// NewDeliveryLedger opens (or creates) the ledger in dataDir. Entries older
// than maxAge are dropped on load.
func NewDeliveryLedger(dataDir string, maxAge time.Duration) (*DeliveryLedger, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	ledger := &DeliveryLedger{
		filePath:  filepath.Join(dataDir, "delivered_reviews.json"),
		delivered: make(map[string]time.Time),
		maxAge:    maxAge,
	}

	if err := ledger.load(); err != nil {
		return nil, fmt.Errorf("failed to load delivery ledger: %w", err)
	}

	ledger.cleanup()

	return ledger, nil
}

// WeekKey is the ledger key for the week starting at weekStart.
func WeekKey(weekStart time.Time) string {
	return weekStart.Format(dateLayout)
}

// IsDelivered reports whether the week has a recorded delivery.
func (l *DeliveryLedger) IsDelivered(weekStart time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.delivered[WeekKey(weekStart)]
	return ok
}

// MarkDelivered records a delivery for the week and persists the ledger.
func (l *DeliveryLedger) MarkDelivered(weekStart time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.delivered[WeekKey(weekStart)] = time.Now()
	return l.save()
}

func (l *DeliveryLedger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.delivered)
}

func (l *DeliveryLedger) cleanup() {
	cutoff := time.Now().Add(-l.maxAge)

	for week, at := range l.delivered {
		if at.Before(cutoff) {
			delete(l.delivered, week)
		}
	}
}

func (l *DeliveryLedger) load() error {
	file, err := os.Open(l.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer file.Close()

	var weeks []DeliveredWeek
	if err := json.NewDecoder(file).Decode(&weeks); err != nil {
		return fmt.Errorf("failed to decode ledger data: %w", err)
	}

	for _, w := range weeks {
		l.delivered[w.WeekStart] = w.DeliveredAt
	}

	return nil
}

// save writes to a temp file and renames it over the ledger.
func (l *DeliveryLedger) save() error {
	weeks := make([]DeliveredWeek, 0, len(l.delivered))
	for week, at := range l.delivered {
		weeks = append(weeks, DeliveredWeek{WeekStart: week, DeliveredAt: at})
	}

	tmp := l.filePath + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(weeks); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	return os.Rename(tmp, l.filePath)
}
