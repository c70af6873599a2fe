package store

import (
	"database/sql"
	"fmt"

	"github.com/neighbornudge/neighbornudge/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	err := scanner.Scan(&b.ID, &b.ObjectKey, &b.SizeBytes, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const backupCols = `id, object_key, size_bytes, created_at`

func (s *BackupStore) Create(objectKey string, sizeBytes int64) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (object_key, size_bytes) VALUES (?, ?)`,
		objectKey, sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	return scanBackup(row)
}

// List returns backups newest first.
func (s *BackupStore) List() ([]model.Backup, error) {
	rows, err := s.db.Query(`SELECT ` + backupCols + ` FROM backups ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

// OldestBeyond returns backups past the newest keep entries, oldest first,
// so the caller can prune them.
func (s *BackupStore) OldestBeyond(keep int) ([]model.Backup, error) {
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups
		 WHERE id NOT IN (SELECT id FROM backups ORDER BY created_at DESC, id DESC LIMIT ?)
		 ORDER BY created_at ASC, id ASC`,
		keep,
	)
	if err != nil {
		return nil, fmt.Errorf("list prunable backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}

func (s *BackupStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM backups WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}
