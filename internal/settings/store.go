package settings

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const weldCounter = "weld"

// Store persists the active settings, the presets and the weld counter.
type Store struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config

	closeOnce sync.Once
	closeErr  error
}

func Open(ctx context.Context, cfg Config, log logger.Logger) (*Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Settings store initialized")

	return &Store{db: db, logger: log, cfg: cfg}, nil
}

// Load returns the stored settings, or the defaults when none were saved.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	var (
		st      Settings
		preheat int
		active  sql.NullString
	)

	err := s.db.QueryRowContext(ctx, selectSettingsSQL).Scan(
		&st.Mode, &st.D1, &st.Gap1, &st.D2, &st.Gap2, &st.D3, &st.Power,
		&preheat, &st.PreheatDuration, &st.PreheatPower, &st.PreheatGapMs,
		&active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return Settings{}, errors.New().Wrap(ErrStorageAccess, err)
	}

	st.PreheatEnabled = preheat != 0
	st.ActivePreset = active.String

	return st, nil
}

// Save stores st after clamping it to firmware ranges and returns what was
// stored.
func (s *Store) Save(ctx context.Context, st Settings) (Settings, error) {
	st = st.Normalize()

	var active any
	if st.ActivePreset != "" {
		active = st.ActivePreset
	}

	if _, err := s.db.ExecContext(ctx, upsertSettingsSQL,
		st.Mode, st.D1, st.Gap1, st.D2, st.Gap2, st.D3, st.Power,
		boolToInt(st.PreheatEnabled), st.PreheatDuration, st.PreheatPower, st.PreheatGapMs,
		active,
	); err != nil {
		return Settings{}, errors.New().Wrap(ErrStorageAccess, err)
	}

	s.logger.Debug().
		Int("mode", st.Mode).
		Int("power", st.Power).
		Str("active_preset", st.ActivePreset).
		Msg("Settings saved")

	return st, nil
}

// Presets returns every stored preset keyed by id. An emptied table falls
// back to the factory presets.
func (s *Store) Presets(ctx context.Context) (map[string]Preset, error) {
	errFactory := errors.New()

	rows, err := s.db.QueryContext(ctx, selectPresetsSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	presets := make(map[string]Preset)
	for rows.Next() {
		var (
			id      string
			p       Preset
			preheat int
		)
		if err := rows.Scan(&id, &p.Name, &p.Mode, &p.D1, &p.Gap1, &p.D2, &p.Gap2, &p.D3, &p.Power,
			&preheat, &p.PreheatDuration, &p.PreheatPower, &p.PreheatGapMs); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		p.PreheatEnabled = preheat != 0
		presets[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	if len(presets) == 0 {
		return DefaultPresets(), nil
	}

	return presets, nil
}

func (s *Store) SavePreset(ctx context.Context, id string, p Preset) error {
	errFactory := errors.New()

	id = strings.TrimSpace(id)
	if id == "" {
		return errFactory.WithMessage(ErrInvalidPreset, "Preset id is required")
	}

	if _, err := s.db.ExecContext(ctx, upsertPresetSQL, presetArgs(id, p.Normalize())...); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err).WithData(id)
	}

	s.logger.Debug().Str("preset", id).Str("name", p.Name).Msg("Preset saved")

	return nil
}

// ActivatePreset makes the stored preset id the active settings.
func (s *Store) ActivatePreset(ctx context.Context, id string) (Settings, error) {
	presets, err := s.Presets(ctx)
	if err != nil {
		return Settings{}, err
	}

	p, ok := presets[id]
	if !ok {
		return Settings{}, errors.New().WithData(ErrInvalidPreset, id)
	}

	return s.Save(ctx, FromPreset(id, p))
}

// LoadCounter returns the persisted weld counter, 0 when never saved.
func (s *Store) LoadCounter(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, selectCounterSQL, weldCounter).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New().Wrap(ErrStorageAccess, err)
	}
	return n, nil
}

func (s *Store) SaveCounter(ctx context.Context, n int) error {
	if _, err := s.db.ExecContext(ctx, upsertCounterSQL, weldCounter, max(n, 0)); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err).WithData(n)
	}
	return nil
}

func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		errFactory := errors.New()

		if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			s.logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
		}

		if err := s.db.Close(); err != nil {
			s.closeErr = errFactory.WithData(ErrStorageClose, struct {
				Phase string
				Error string
			}{
				Phase: "close_database",
				Error: err.Error(),
			})
			return
		}

		s.logger.Info().Msg("Settings store closed")
	})

	return s.closeErr
}
