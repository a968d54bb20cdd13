package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"staylens/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS compare_entries (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		name TEXT,
		rating REAL,
		review_count INTEGER,
		price REAL,
		currency TEXT,
		location TEXT,
		stay_summary TEXT,
		added_at DATETIME,
		is_active BOOLEAN DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS discovery_runs (
		id INTEGER PRIMARY KEY,
		site_id TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		keys_requested INTEGER,
		keys_resolved INTEGER,
		keys_empty INTEGER,
		rate_limited INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		site_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON discovery_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_compare_added ON compare_entries(added_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetPreference(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *SQLiteStore) SetPreference(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now())
	return err
}

func (s *SQLiteStore) GetBoolPreference(key string) (bool, error) {
	value, err := s.GetPreference(key)
	if err != nil {
		return false, err
	}
	return value == "true" || value == "1", nil
}

func (s *SQLiteStore) SetBoolPreference(key string, value bool) error {
	str := "false"
	if value {
		str = "true"
	}
	return s.SetPreference(key, str)
}

func (s *SQLiteStore) SaveCompareEntry(entry models.CompareEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO compare_entries (id, url, name, rating, review_count, price, currency, location, stay_summary, added_at, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			name = excluded.name,
			rating = excluded.rating,
			review_count = excluded.review_count,
			price = excluded.price,
			currency = excluded.currency,
			location = excluded.location,
			stay_summary = excluded.stay_summary,
			is_active = excluded.is_active`,
		entry.ID, entry.URL, entry.Name, entry.Rating, entry.ReviewCount, entry.Price,
		entry.Currency, entry.Location, entry.StaySummary, entry.AddedAt, entry.IsActive)
	return err
}

func (s *SQLiteStore) DeleteCompareEntry(id string) error {
	_, err := s.db.Exec(`DELETE FROM compare_entries WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) ClearCompareEntries() error {
	_, err := s.db.Exec(`DELETE FROM compare_entries`)
	return err
}

func (s *SQLiteStore) ListCompareEntries() ([]models.CompareEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, url, name, rating, review_count, price, currency, location, stay_summary, added_at, COALESCE(is_active, TRUE)
		FROM compare_entries ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CompareEntry
	for rows.Next() {
		var e models.CompareEntry
		var name, currency, location, stay sql.NullString
		if err := rows.Scan(&e.ID, &e.URL, &name, &e.Rating, &e.ReviewCount, &e.Price,
			&currency, &location, &stay, &e.AddedAt, &e.IsActive); err != nil {
			return nil, err
		}
		e.Name = name.String
		e.Currency = currency.String
		e.Location = location.String
		e.StaySummary = stay.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) error {
	var raw []byte
	if params != nil {
		var err error
		raw, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`INSERT INTO commands (command, params) VALUES (?, ?)`, cmd, string(raw))
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" || string(cmd.Params) == "" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}

func (s *SQLiteStore) CreateRun(run *models.DiscoveryRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO discovery_runs (site_id, started_at, status, keys_requested, keys_resolved, keys_empty, rate_limited, errors_count)
		VALUES (?, ?, ?, ?, 0, 0, 0, 0)`,
		run.SiteID, run.StartedAt, run.Status, run.KeysRequested)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.DiscoveryRun) error {
	_, err := s.db.Exec(`
		UPDATE discovery_runs SET finished_at = ?, status = ?, keys_requested = ?,
			keys_resolved = ?, keys_empty = ?, rate_limited = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.KeysRequested, run.KeysResolved,
		run.KeysEmpty, run.RateLimited, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, siteID string) error {
	_, err := s.db.Exec(`
		INSERT INTO run_logs (run_id, timestamp, level, message, site_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, siteID)
	return err
}

func (s *SQLiteStore) GetLastRun(siteID string) (*models.DiscoveryRun, error) {
	row := s.db.QueryRow(`
		SELECT id, site_id, started_at, finished_at, status, keys_requested, keys_resolved, keys_empty, rate_limited, errors_count
		FROM discovery_runs WHERE site_id = ? ORDER BY started_at DESC LIMIT 1`, siteID)

	var run models.DiscoveryRun
	err := row.Scan(&run.ID, &run.SiteID, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.KeysRequested, &run.KeysResolved, &run.KeysEmpty, &run.RateLimited, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
