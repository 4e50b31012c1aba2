package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
	"github.com/k-shtanenko/weather-app/weather-poller/internal/pkg/logger"
)

// Store is an append-only CSV file of readings. Each Append opens the file,
// writes one row (plus the header when the file is absent or empty) and
// closes it again, so external tools may read or move the file between
// cycles.
type Store struct {
	path   string
	mu     sync.Mutex
	logger logger.Logger
}

func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		path:   path,
		logger: log.WithField("component", "csv_store"),
	}
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Append(ctx context.Context, reading *entities.Reading) error {
	if reading == nil {
		return errors.New("nil reading")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		s.logger.Infof("Writing header to %s", s.path)
		if err := w.Write(entities.CSVHeader); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	if err := w.Write(reading.Record()); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}

	return f.Close()
}

// ReadAll loads every row after the header. A missing file yields no
// readings.
func (s *Store) ReadAll(ctx context.Context) ([]*entities.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(entities.CSVHeader)

	var readings []*entities.Reading
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}

		if line == 1 && record[0] == entities.CSVHeader[0] {
			continue
		}

		reading, err := entities.ParseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		readings = append(readings, reading)
	}

	s.logger.Debugf("Loaded %d readings from %s", len(readings), s.path)
	return readings, nil
}
