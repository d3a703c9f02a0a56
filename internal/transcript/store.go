// Package transcript — долговременный append-only журнал реплик
// интервью и хранилище итоговых отчетов. При недоступности базы
// деградирует до хранения в памяти, не прерывая интервью.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"tech-interview-engine/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT    NOT NULL,
	speaker     TEXT    NOT NULL,
	text        TEXT    NOT NULL,
	evaluation  TEXT,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, id);

CREATE TABLE IF NOT EXISTS reports (
	session_id      TEXT    PRIMARY KEY,
	final_score     REAL    NOT NULL,
	recommendation  TEXT    NOT NULL,
	narrative       TEXT    NOT NULL,
	duration_ms     INTEGER NOT NULL,
	created_at      INTEGER NOT NULL
);
`

// Store персистит реплики в SQLite и держит зеркало в памяти на
// случай деградации
type Store struct {
	sqlDB *sql.DB

	mu       sync.RWMutex
	turns    map[string][]session.Turn
	reports  map[string]session.FinalReport
	degraded bool
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open открывает SQLite хранилище и создает схему
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{
		sqlDB:   sqlDB,
		turns:   make(map[string][]session.Turn),
		reports: make(map[string]session.FinalReport),
	}, nil
}

// NewMemory создает хранилище только в памяти (деградированный режим)
func NewMemory() *Store {
	return &Store{
		turns:    make(map[string][]session.Turn),
		reports:  make(map[string]session.FinalReport),
		degraded: true,
	}
}

// Close закрывает базу
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Degraded сообщает, что долговременное хранение недоступно
func (s *Store) Degraded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.degraded
}

// Append дописывает реплику в журнал сессии. Порядок реплик
// сохраняется, подтвержденные реплики не теряются: зеркало в памяти
// пополняется до записи в базу, сбой базы лишь переводит хранилище
// в деградированный режим.
func (s *Store) Append(ctx context.Context, sessionID string, turn session.Turn) error {
	s.mu.Lock()
	s.turns[sessionID] = append(s.turns[sessionID], turn)
	degraded := s.degraded
	s.mu.Unlock()

	if degraded || s.sqlDB == nil {
		return nil
	}

	var evalJSON interface{}
	if turn.Evaluation != nil {
		data, err := json.Marshal(turn.Evaluation)
		if err == nil {
			evalJSON = string(data)
		}
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO turns (session_id, speaker, text, evaluation, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(turn.Speaker), turn.Text, evalJSON, toMillis(turn.Timestamp))
	if err != nil {
		s.degrade(err)
	}
	return nil
}

// History возвращает реплики сессии в порядке добавления
func (s *Store) History(ctx context.Context, sessionID string) []session.Turn {
	s.mu.RLock()
	degraded := s.degraded
	memTurns := make([]session.Turn, len(s.turns[sessionID]))
	copy(memTurns, s.turns[sessionID])
	s.mu.RUnlock()

	if degraded || s.sqlDB == nil {
		return memTurns
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT speaker, text, evaluation, created_at
		 FROM turns WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		log.Printf("⚠️ Ошибка чтения транскрипта, использую память: %v", err)
		return memTurns
	}
	defer rows.Close()

	var turns []session.Turn
	for rows.Next() {
		var (
			speaker   string
			text      string
			evalJSON  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&speaker, &text, &evalJSON, &createdAt); err != nil {
			log.Printf("⚠️ Ошибка чтения реплики, использую память: %v", err)
			return memTurns
		}
		turn := session.Turn{
			Speaker:   session.Speaker(speaker),
			Text:      text,
			Timestamp: time.UnixMilli(createdAt).UTC(),
		}
		if evalJSON.Valid && evalJSON.String != "" {
			var eval session.Evaluation
			if err := json.Unmarshal([]byte(evalJSON.String), &eval); err == nil {
				turn.Evaluation = &eval
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		log.Printf("⚠️ Ошибка обхода транскрипта, использую память: %v", err)
		return memTurns
	}
	return turns
}

// SaveReport сохраняет итоговый отчет. Для каждой сессии пишется
// ровно один отчет: первый выигрывает, повторная запись игнорируется.
func (s *Store) SaveReport(ctx context.Context, sessionID string, report session.FinalReport) error {
	s.mu.Lock()
	if _, exists := s.reports[sessionID]; !exists {
		s.reports[sessionID] = report
	}
	degraded := s.degraded
	s.mu.Unlock()

	if degraded || s.sqlDB == nil {
		return nil
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO reports (session_id, final_score, recommendation, narrative, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, report.FinalScore, report.Recommendation, report.Narrative,
		report.Duration.Milliseconds(), toMillis(time.Now()))
	if err != nil {
		s.degrade(err)
	}
	return nil
}

// GetReport возвращает сохраненный отчет сессии
func (s *Store) GetReport(ctx context.Context, sessionID string) (session.FinalReport, bool) {
	s.mu.RLock()
	report, ok := s.reports[sessionID]
	s.mu.RUnlock()
	if ok {
		return report, true
	}

	if s.Degraded() || s.sqlDB == nil {
		return session.FinalReport{}, false
	}

	var durationMS int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT final_score, recommendation, narrative, duration_ms
		 FROM reports WHERE session_id = ?`, sessionID).
		Scan(&report.FinalScore, &report.Recommendation, &report.Narrative, &durationMS)
	if err != nil {
		return session.FinalReport{}, false
	}
	report.Duration = time.Duration(durationMS) * time.Millisecond
	return report, true
}

// degrade переключает хранилище в режим памяти после сбоя базы.
// Интервью продолжается, операторам сообщается о деградации.
func (s *Store) degrade(cause error) {
	s.mu.Lock()
	already := s.degraded
	s.degraded = true
	s.mu.Unlock()

	if !already {
		log.Printf("⚠️ Долговременное хранилище недоступно, перехожу в режим памяти: %v", cause)
	}
}
