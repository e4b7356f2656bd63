package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// tsLayout is how timestamps are stored. Fixed-width UTC strings sort
// chronologically, so range filters are plain string comparisons.
const tsLayout = "2006-01-02T15:04:05Z"

// Logger receives background errors.
type Logger interface {
	Errorf(format string, args ...interface{})
}

// Store persists events in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			referrer TEXT NOT NULL DEFAULT '',
			browser TEXT NOT NULL DEFAULT '',
			os TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL DEFAULT '',
			props TEXT NOT NULL DEFAULT '{}',
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_events_name ON events(name, timestamp);
		CREATE INDEX IF NOT EXISTS idx_events_visitor ON events(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting returns a setting value, or "" when the key is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveEvent stores ev. A zero Timestamp means now.
func (s *Store) SaveEvent(ctx context.Context, ev *Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	props := ev.Props
	if props == nil {
		props = map[string]string{}
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("encode props: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (name, visitor_id, ip_hash, path, referrer, browser, os, device, props, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Name, ev.VisitorID, ev.IPHash, ev.Path, ev.Referrer,
		ev.Browser, ev.OS, ev.Device, string(raw), ev.Timestamp.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	ev.ID, _ = res.LastInsertId()
	return nil
}

// SaveBotVisit stores a crawler page view.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	if bv.Timestamp.IsZero() {
		bv.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp) VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC().Format(tsLayout))
	if err != nil {
		return fmt.Errorf("insert bot visit: %w", err)
	}
	return nil
}

// GetStats aggregates events in [from, to). Each aggregate runs in its own
// goroutine; the first error wins.
func (s *Store) GetStats(ctx context.Context, from, to time.Time) (*Stats, error) {
	fromStr, toStr := from.UTC().Format(tsLayout), to.UTC().Format(tsLayout)
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPosts:      []PageStat{},
		TopSearches:   []SearchStat{},
		EmptySearches: []SearchStat{},
		TopTags:       []DimensionStat{},
		Browsers:      []DimensionStat{},
		Devices:       []DimensionStat{},
		Referrers:     []DimensionStat{},
		DailyViews:    []DailyView{},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	run := func(label string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", label, err)
				}
				mu.Unlock()
			}
		}()
	}

	run("count views", func() error {
		var pages, posts, unique int
		err := s.db.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(name = 'page_view'), 0),
				COALESCE(SUM(name = 'post_view'), 0),
				COUNT(DISTINCT visitor_id)
			FROM events
			WHERE timestamp >= ? AND timestamp < ? AND name IN ('page_view', 'post_view')`,
			fromStr, toStr).Scan(&pages, &posts, &unique)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.PageViews, stats.PostViews, stats.UniqueVisitors = pages, posts, unique
		mu.Unlock()
		return nil
	})

	run("top posts", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT path, COUNT(*) AS views FROM events
			WHERE name = 'post_view' AND timestamp >= ? AND timestamp < ?
			GROUP BY path ORDER BY views DESC, path LIMIT 10`, fromStr, toStr)
		if err != nil {
			return err
		}
		defer rows.Close()
		var out []PageStat
		for rows.Next() {
			var p PageStat
			if err := rows.Scan(&p.Path, &p.Views); err != nil {
				return err
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		mu.Lock()
		if out != nil {
			stats.TopPosts = out
		}
		mu.Unlock()
		return nil
	})

	run("top searches", func() error {
		out, err := s.searchStats(ctx, fromStr, toStr, false)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.TopSearches = out
		mu.Unlock()
		return nil
	})

	run("empty searches", func() error {
		out, err := s.searchStats(ctx, fromStr, toStr, true)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.EmptySearches = out
		mu.Unlock()
		return nil
	})

	run("top tags", func() error {
		out, err := s.dimension(ctx, `
			SELECT json_extract(props, '$.tag_name') AS label, COUNT(*) AS c FROM events
			WHERE name = 'tag_click' AND timestamp >= ? AND timestamp < ?
			GROUP BY label ORDER BY c DESC, label LIMIT 10`, fromStr, toStr)
		if err != nil {
			return err
		}
		mu.Lock()
		stats.TopTags = out
		mu.Unlock()
		return nil
	})

	for _, col := range []struct {
		label, column string
		dst           *[]DimensionStat
	}{
		{"browsers", "browser", &stats.Browsers},
		{"devices", "device", &stats.Devices},
		{"referrers", "referrer", &stats.Referrers},
	} {
		run(col.label, func() error {
			out, err := s.dimension(ctx, `
				SELECT `+col.column+` AS label, COUNT(*) AS c FROM events
				WHERE name IN ('page_view', 'post_view') AND timestamp >= ? AND timestamp < ?
				GROUP BY label ORDER BY c DESC, label LIMIT 10`, fromStr, toStr)
			if err != nil {
				return err
			}
			mu.Lock()
			*col.dst = out
			mu.Unlock()
			return nil
		})
	}

	run("daily views", func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT substr(timestamp, 1, 10) AS day, COUNT(*) FROM events
			WHERE name IN ('page_view', 'post_view') AND timestamp >= ? AND timestamp < ?
			GROUP BY day ORDER BY day`, fromStr, toStr)
		if err != nil {
			return err
		}
		defer rows.Close()
		var out []DailyView
		for rows.Next() {
			var d DailyView
			if err := rows.Scan(&d.Date, &d.Views); err != nil {
				return err
			}
			out = append(out, d)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		mu.Lock()
		if out != nil {
			stats.DailyViews = out
		}
		mu.Unlock()
		return nil
	})

	run("bot visits", func() error {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bot_visits WHERE timestamp >= ? AND timestamp < ?`,
			fromStr, toStr).Scan(&n); err != nil {
			return err
		}
		mu.Lock()
		stats.BotVisits = n
		mu.Unlock()
		return nil
	})

	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return stats, nil
}

func (s *Store) searchStats(ctx context.Context, from, to string, emptyOnly bool) ([]SearchStat, error) {
	query := `
		SELECT json_extract(props, '$.search_term') AS term,
		       COUNT(*) AS c,
		       AVG(CAST(json_extract(props, '$.results_count') AS INTEGER))
		FROM events
		WHERE name = 'search' AND timestamp >= ? AND timestamp < ?`
	if emptyOnly {
		query += ` AND CAST(json_extract(props, '$.results_count') AS INTEGER) = 0`
	}
	query += ` GROUP BY term ORDER BY c DESC, term LIMIT 10`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SearchStat{}
	for rows.Next() {
		var st SearchStat
		var term sql.NullString
		var avg sql.NullFloat64
		if err := rows.Scan(&term, &st.Count, &avg); err != nil {
			return nil, err
		}
		st.Term, st.AvgResults = term.String, avg.Float64
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) dimension(ctx context.Context, query string, args ...any) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		var name sql.NullString
		if err := rows.Scan(&name, &d.Count); err != nil {
			return nil, err
		}
		d.Name = name.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// CleanupOldEvents removes events and bot visits older than retentionDays.
func (s *Store) CleanupOldEvents(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(tsLayout)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup events: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs CleanupOldEvents every interval. Returns a stop
// function; calling it more than once is safe.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, logger Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldEvents(context.Background(), retentionDays); err != nil && logger != nil {
					logger.Errorf("analytics: %v", err)
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// RealtimeVisitors counts distinct visitors seen in the last five minutes.
func (s *Store) RealtimeVisitors(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-5 * time.Minute).Format(tsLayout)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT visitor_id) FROM events WHERE timestamp >= ?`, cutoff).Scan(&n)
	return n, err
}
