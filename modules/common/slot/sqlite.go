package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "modernc.org/sqlite"
)

// SQLiteSlots - slots 테이블의 (namespace, slot_key) 행 하나를 슬롯 하나로 사용
type SQLiteSlots struct {
	db        *sql.DB
	namespace string
}

// NewSQLiteSlots - DB 열고 테이블 생성
func NewSQLiteSlots(dataSourceName, namespace string) (*SQLiteSlots, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 단일 커넥션으로 쓰기 직렬화
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSlots{db: db, namespace: namespace}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("✅ [Slot:sqlite] Using database: %s (namespace: %s)", dataSourceName, namespace)
	return s, nil
}

func (s *SQLiteSlots) createTables() error {
	query := `CREATE TABLE IF NOT EXISTS slots (
		namespace TEXT NOT NULL,
		slot_key TEXT NOT NULL,
		slot_value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, slot_key)
	);`
	_, err := s.db.Exec(query)
	return err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteSlots) get(ctx context.Context, q queryer, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx,
		`SELECT slot_value FROM slots WHERE namespace = ? AND slot_key = ?`,
		s.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteSlots) set(ctx context.Context, q queryer, key, value string) error {
	_, err := q.ExecContext(ctx, `
	INSERT INTO slots (namespace, slot_key, slot_value, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT (namespace, slot_key)
	DO UPDATE SET slot_value = excluded.slot_value, updated_at = CURRENT_TIMESTAMP
	`, s.namespace, key, value)
	if err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSlots) Get(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(key); err != nil {
		return "", false, err
	}
	return s.get(ctx, s.db, key)
}

func (s *SQLiteSlots) Set(ctx context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.set(ctx, s.db, key, value)
}

func (s *SQLiteSlots) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM slots WHERE namespace = ? AND slot_key = ?`,
		s.namespace, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

// Update - 트랜잭션 안에서 read-modify-write
func (s *SQLiteSlots) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := validateKey(key); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, found, err := s.get(ctx, tx, key)
	if err != nil {
		return err
	}
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	if err := s.set(ctx, tx, key, next); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteSlots) Close() error {
	return s.db.Close()
}
