package settings

import (
	"database/sql"

	"codeberg.org/mutker/weldctl/internal/errors"
	"codeberg.org/mutker/weldctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS settings (
	       id               INTEGER PRIMARY KEY CHECK (id = 1),
	       mode             INTEGER NOT NULL CHECK (mode BETWEEN 1 AND 3),
	       d1               INTEGER NOT NULL CHECK (d1 >= 0),
	       gap1             INTEGER NOT NULL CHECK (gap1 >= 0),
	       d2               INTEGER NOT NULL CHECK (d2 >= 0),
	       gap2             INTEGER NOT NULL CHECK (gap2 >= 0),
	       d3               INTEGER NOT NULL CHECK (d3 >= 0),
	       power            INTEGER NOT NULL CHECK (power BETWEEN 0 AND 100),
	       preheat_enabled  INTEGER NOT NULL CHECK (preheat_enabled IN (0, 1)),
	       preheat_duration INTEGER NOT NULL CHECK (preheat_duration >= 0),
	       preheat_power    INTEGER NOT NULL CHECK (preheat_power BETWEEN 0 AND 100),
	       preheat_gap_ms   INTEGER NOT NULL CHECK (preheat_gap_ms >= 0),
	       active_preset    TEXT,
	       updated_at       TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS presets (
	       id               TEXT PRIMARY KEY,
	       name             TEXT NOT NULL,
	       mode             INTEGER NOT NULL CHECK (mode BETWEEN 1 AND 3),
	       d1               INTEGER NOT NULL CHECK (d1 >= 0),
	       gap1             INTEGER NOT NULL CHECK (gap1 >= 0),
	       d2               INTEGER NOT NULL CHECK (d2 >= 0),
	       gap2             INTEGER NOT NULL CHECK (gap2 >= 0),
	       d3               INTEGER NOT NULL CHECK (d3 >= 0),
	       power            INTEGER NOT NULL CHECK (power BETWEEN 0 AND 100),
	       preheat_enabled  INTEGER NOT NULL CHECK (preheat_enabled IN (0, 1)),
	       preheat_duration INTEGER NOT NULL CHECK (preheat_duration >= 0),
	       preheat_power    INTEGER NOT NULL CHECK (preheat_power BETWEEN 0 AND 100),
	       preheat_gap_ms   INTEGER NOT NULL CHECK (preheat_gap_ms >= 0)
	   );
	   CREATE TABLE IF NOT EXISTS counters (
	       name   TEXT PRIMARY KEY,
	       value  INTEGER NOT NULL CHECK (value >= 0)
	   );`

	upsertSettingsSQL = `
    INSERT INTO settings (
        id, mode, d1, gap1, d2, gap2, d3, power,
        preheat_enabled, preheat_duration, preheat_power, preheat_gap_ms,
        active_preset, updated_at
    ) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
    ON CONFLICT(id) DO UPDATE SET
        mode = excluded.mode, d1 = excluded.d1, gap1 = excluded.gap1,
        d2 = excluded.d2, gap2 = excluded.gap2, d3 = excluded.d3,
        power = excluded.power, preheat_enabled = excluded.preheat_enabled,
        preheat_duration = excluded.preheat_duration,
        preheat_power = excluded.preheat_power,
        preheat_gap_ms = excluded.preheat_gap_ms,
        active_preset = excluded.active_preset,
        updated_at = excluded.updated_at`

	selectSettingsSQL = `
    SELECT mode, d1, gap1, d2, gap2, d3, power,
           preheat_enabled, preheat_duration, preheat_power, preheat_gap_ms,
           active_preset
    FROM settings WHERE id = 1`

	upsertPresetSQL = `
    INSERT INTO presets (
        id, name, mode, d1, gap1, d2, gap2, d3, power,
        preheat_enabled, preheat_duration, preheat_power, preheat_gap_ms
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        name = excluded.name, mode = excluded.mode, d1 = excluded.d1,
        gap1 = excluded.gap1, d2 = excluded.d2, gap2 = excluded.gap2,
        d3 = excluded.d3, power = excluded.power,
        preheat_enabled = excluded.preheat_enabled,
        preheat_duration = excluded.preheat_duration,
        preheat_power = excluded.preheat_power,
        preheat_gap_ms = excluded.preheat_gap_ms`

	selectPresetsSQL = `
    SELECT id, name, mode, d1, gap1, d2, gap2, d3, power,
           preheat_enabled, preheat_duration, preheat_power, preheat_gap_ms
    FROM presets ORDER BY id`

	upsertCounterSQL = `
    INSERT INTO counters (name, value) VALUES (?, ?)
    ON CONFLICT(name) DO UPDATE SET value = excluded.value`

	selectCounterSQL = `SELECT value FROM counters WHERE name = ?`
)

// InitSchema creates a new database schema with the current version and
// seeds the factory presets.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	for id, p := range DefaultPresets() {
		if _, err := tx.Exec(upsertPresetSQL, presetArgs(id, p)...); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Phase  string
				Preset string
				Error  string
			}{
				Phase:  "seed_presets",
				Preset: id,
				Error:  err.Error(),
			})
		}
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}

func presetArgs(id string, p Preset) []any {
	return []any{
		id, p.Name, p.Mode, p.D1, p.Gap1, p.D2, p.Gap2, p.D3, p.Power,
		boolToInt(p.PreheatEnabled), p.PreheatDuration, p.PreheatPower, p.PreheatGapMs,
	}
}
