package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
)

const (
	DefaultMaxRecords = 15

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
	filePrefix      = "weld_"
	fileSuffix      = ".json"
)

// CounterStore persists the last assigned weld number outside the history
// directory, so clearing history and restarting never reuses stale numbers.
type CounterStore interface {
	LoadCounter(ctx context.Context) (int, error)
	SaveCounter(ctx context.Context, n int) error
}

type Config struct {
	Dir        string
	MaxRecords int
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Dir == "" {
		return errFactory.WithData(ErrInvalidConfig, "empty directory")
	}
	if c.MaxRecords <= 0 {
		return errFactory.WithData(ErrInvalidConfig, "max records must be positive")
	}
	return nil
}

// Store keeps the most recent welds as one JSON file each.
type Store struct {
	cfg     Config
	counter CounterStore
	logger  logger.Logger

	mu   sync.Mutex
	last int
}

// Open prepares the directory and restores the weld counter. The counter
// starts at the larger of the persisted value and the highest record on disk.
func Open(ctx context.Context, cfg Config, counter CounterStore, log logger.Logger) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Dir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	s := &Store{cfg: cfg, counter: counter, logger: log}

	numbers, err := s.numbers()
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}
	if len(numbers) > 0 {
		s.last = numbers[len(numbers)-1]
	}

	if counter != nil {
		persisted, err := counter.LoadCounter(ctx)
		if err != nil {
			return nil, errFactory.Wrap(ErrCounterAccess, err)
		}
		s.last = max(s.last, persisted)
	}

	log.Debug().
		Str("dir", cfg.Dir).
		Int("records", len(numbers)).
		Int("counter", s.last).
		Msg("History store opened")

	return s, nil
}

// Persist assigns the next weld number, writes the record and evicts the
// oldest records beyond the cap. The counter advances even when the write
// fails so a broken disk never stalls the capture pipeline; that weld is
// then lost and the error returned for logging.
func (s *Store) Persist(ctx context.Context, rec Record) (Record, error) {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	rec.Number = s.last

	if s.counter != nil {
		if err := s.counter.SaveCounter(ctx, s.last); err != nil {
			s.logger.Warn().Err(err).Int("weld_number", s.last).Msg("Failed to persist weld counter")
		}
	}

	if err := s.write(rec); err != nil {
		return rec, errFactory.Wrap(ErrStorageAccess, err).WithData(rec.Number)
	}

	if err := s.evict(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to evict old weld records")
	}

	return rec, nil
}

// List returns up to limit summaries, newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numbers, err := s.numbers()
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	summaries := make([]Summary, 0, len(numbers))
	for i := len(numbers) - 1; i >= 0; i-- {
		if limit > 0 && len(summaries) >= limit {
			break
		}
		rec, err := s.read(numbers[i])
		if err != nil {
			s.logger.Warn().Err(err).Int("weld_number", numbers[i]).Msg("Skipping unreadable weld record")
			continue
		}
		summaries = append(summaries, rec.Summary())
	}

	return summaries, nil
}

// Read returns the full record, or an error coded ErrRecordNotFound.
func (s *Store) Read(number int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read(number)
}

// Clear deletes every record and resets the counter to 0, including the
// persisted copy.
func (s *Store) Clear(ctx context.Context) error {
	errFactory := errors.New()

	s.mu.Lock()
	defer s.mu.Unlock()

	numbers, err := s.numbers()
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	for _, n := range numbers {
		if err := os.Remove(s.path(n)); err != nil && !os.IsNotExist(err) {
			return errFactory.Wrap(ErrStorageAccess, err)
		}
	}

	s.last = 0
	if s.counter != nil {
		if err := s.counter.SaveCounter(ctx, 0); err != nil {
			return errFactory.Wrap(ErrCounterAccess, err)
		}
	}

	s.logger.Info().Int("deleted", len(numbers)).Msg("Weld history cleared")

	return nil
}

// Counter returns the last assigned weld number.
func (s *Store) Counter() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Store) write(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.cfg.Dir, ".weld-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(defaultFilePerm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), s.path(rec.Number))
}

func (s *Store) read(number int) (Record, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(s.path(number))
	if os.IsNotExist(err) {
		return Record{}, errFactory.WithData(ErrRecordNotFound, number)
	}
	if err != nil {
		return Record{}, errFactory.Wrap(ErrStorageAccess, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, errFactory.Wrap(ErrStorageAccess, err).WithData(number)
	}

	return rec, nil
}

func (s *Store) evict() error {
	numbers, err := s.numbers()
	if err != nil {
		return err
	}

	surplus := len(numbers) - s.cfg.MaxRecords
	for i := 0; i < surplus; i++ {
		if err := os.Remove(s.path(numbers[i])); err != nil && !os.IsNotExist(err) {
			return err
		}
		s.logger.Debug().Int("weld_number", numbers[i]).Msg("Evicted weld record")
	}

	return nil
}

// numbers returns the weld numbers on disk in ascending order.
func (s *Store) numbers() ([]int, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return nil, err
	}

	var numbers []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := parseName(e.Name()); ok {
			numbers = append(numbers, n)
		}
	}
	sort.Ints(numbers)

	return numbers, nil
}

func (s *Store) path(number int) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("%s%04d%s", filePrefix, number, fileSuffix))
}

func parseName(name string) (int, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
