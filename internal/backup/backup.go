// Package backup takes periodic encrypted snapshots of the SQLite database
// and ships them to S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/store"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds backup manager configuration. Backups are disabled when
// Bucket or Passphrase is empty.
type Config struct {
	Bucket     string
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Passphrase string
	DBPath     string
	Interval   time.Duration
	Keep       int
}

// NotifyFunc is called after each successful backup upload.
type NotifyFunc func(*model.Backup)

// Manager runs scheduled encrypted database backups.
type Manager struct {
	cfg    Config
	db     *sql.DB
	store  *store.BackupStore
	client s3Client
	notify NotifyFunc
	logger *slog.Logger
}

func NewManager(cfg Config, db *sql.DB, bs *store.BackupStore, notify NotifyFunc, logger *slog.Logger) *Manager {
	m := &Manager{
		cfg:    cfg,
		db:     db,
		store:  bs,
		notify: notify,
		logger: logger,
	}
	if cfg.Bucket != "" && cfg.Passphrase != "" {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether the manager is configured to run backups.
func (m *Manager) Enabled() bool {
	return m.client != nil
}

// Run executes the backup loop until ctx is cancelled. It is a no-op when
// backups are not configured.
func (m *Manager) Run(ctx context.Context) {
	if !m.Enabled() {
		m.logger.Info("backups disabled")
		return
	}

	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rec, err := m.BackupNow(ctx); err != nil {
				m.logger.Error("scheduled backup failed", "error", err)
			} else {
				m.logger.Info("backup uploaded", "key", rec.ObjectKey, "size_bytes", rec.SizeBytes)
			}
			if err := m.prune(ctx); err != nil {
				m.logger.Error("backup prune failed", "error", err)
			}
		}
	}
}

// BackupNow snapshots the database, encrypts it, and uploads it.
func (m *Manager) BackupNow(ctx context.Context) (*model.Backup, error) {
	if !m.Enabled() {
		return nil, fmt.Errorf("backups not configured")
	}

	snapshot := filepath.Join(os.TempDir(), fmt.Sprintf("neighbornudge-backup-%d.db", time.Now().UnixNano()))
	defer os.Remove(snapshot)

	// VACUUM INTO writes a consistent copy without blocking writers.
	// The target filename cannot be bound as a parameter.
	quoted := strings.ReplaceAll(snapshot, "'", "''")
	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}

	plaintext, err := os.ReadFile(snapshot)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	encrypted, err := Encrypt(plaintext, m.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("encrypt snapshot: %w", err)
	}

	key := fmt.Sprintf("backups/neighbornudge-%s.db.enc", time.Now().UTC().Format("2006-01-02T150405.000000000Z"))
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(encrypted),
		ContentLength: aws.Int64(int64(len(encrypted))),
	})
	if err != nil {
		return nil, fmt.Errorf("upload backup: %w", err)
	}

	rec, err := m.store.Create(key, int64(len(encrypted)))
	if err != nil {
		return nil, fmt.Errorf("record backup: %w", err)
	}

	if m.notify != nil {
		m.notify(rec)
	}
	return rec, nil
}

// Restore downloads a backup, decrypts it, checks its integrity, and writes
// the database file to dstPath. The server must be restarted to pick it up.
func (m *Manager) Restore(ctx context.Context, objectKey, dstPath string) error {
	if !m.Enabled() {
		return fmt.Errorf("backups not configured")
	}

	result, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.Bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return fmt.Errorf("download backup: %w", err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plaintext, err := Decrypt(buf.Bytes(), m.cfg.Passphrase)
	if err != nil {
		return fmt.Errorf("decrypt backup: %w", err)
	}

	restored := filepath.Join(os.TempDir(), fmt.Sprintf("neighbornudge-restore-%d.db", time.Now().UnixNano()))
	defer os.Remove(restored)
	if err := os.WriteFile(restored, plaintext, 0600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}

	tmpDB, err := sql.Open("sqlite", restored)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	var integrity string
	if err := tmpDB.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		tmpDB.Close()
		return fmt.Errorf("integrity check: %w", err)
	}
	tmpDB.Close()
	if integrity != "ok" {
		return fmt.Errorf("integrity check failed: %s", integrity)
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("replace database: %w", err)
	}

	// Stale WAL and SHM files would shadow the restored content
	os.Remove(dstPath + "-wal")
	os.Remove(dstPath + "-shm")

	return nil
}

// prune deletes backups past the newest Keep entries, remote object first.
func (m *Manager) prune(ctx context.Context) error {
	keep := m.cfg.Keep
	if keep <= 0 {
		keep = 7
	}

	old, err := m.store.OldestBeyond(keep)
	if err != nil {
		return fmt.Errorf("list prunable backups: %w", err)
	}

	for _, b := range old {
		if _, err := m.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.Bucket),
			Key:    aws.String(b.ObjectKey),
		}); err != nil {
			m.logger.Error("delete backup object failed", "key", b.ObjectKey, "error", err)
			continue
		}
		if err := m.store.Delete(b.ID); err != nil {
			return fmt.Errorf("delete backup record: %w", err)
		}
	}
	return nil
}
