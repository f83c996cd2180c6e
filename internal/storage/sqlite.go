package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver registration.

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Repository backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Save inserts a material as a new row and populates its MaterialID and
// SavedAt. Re-saving under the same project name appends, it never
// replaces an earlier snapshot.
func (s *SQLite) Save(ctx context.Context, m *model.Material) error {
	if m.MaterialID == "" {
		m.MaterialID = uuid.NewString()
	}
	now := time.Now().UTC()

	fetchParams, err := json.Marshal(m.FilterSpec)
	if err != nil {
		return &model.StorageError{Op: "save", Err: fmt.Errorf("marshal fetch params: %w", err)}
	}
	rawItems, err := json.Marshal(m.RawItems)
	if err != nil {
		return &model.StorageError{Op: "save", Err: fmt.Errorf("marshal items: %w", err)}
	}

	var aiSummary sql.NullString
	if m.Summary != nil {
		data, err := json.Marshal(m.Summary)
		if err != nil {
			return &model.StorageError{Op: "save", Err: fmt.Errorf("marshal summary: %w", err)}
		}
		aiSummary = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO materials (material_id, project_name, tags, kind, platform, target,
		                        fetch_params, raw_items, item_count, ai_summary, report_text,
		                        source_material_ids, model_used, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MaterialID, m.ProjectName, strings.Join(m.Tags, ","), string(m.Kind),
		string(m.FilterSpec.Platform), m.FilterSpec.Target,
		string(fetchParams), string(rawItems), len(m.RawItems), aiSummary, m.ReportText,
		strings.Join(m.SourceMaterialIDs, ","), m.ModelUsed,
		now.Format(timeLayout),
	)
	if err != nil {
		return &model.StorageError{Op: "save", Err: fmt.Errorf("insert material: %w", err)}
	}
	m.SavedAt = now
	return nil
}

// List returns metadata for every saved material, newest first. Item
// bodies stay on disk.
func (s *SQLite) List(ctx context.Context) ([]model.MaterialSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT material_id, project_name, tags, kind, platform, target, item_count,
		        ai_summary IS NOT NULL, saved_at
		 FROM materials ORDER BY saved_at DESC, material_id`,
	)
	if err != nil {
		return nil, &model.StorageError{Op: "list", Err: fmt.Errorf("query materials: %w", err)}
	}
	defer func() { _ = rows.Close() }()

	var summaries []model.MaterialSummary
	for rows.Next() {
		var ms model.MaterialSummary
		var tags, kind, platform, savedAt string
		var hasSummary int
		if err := rows.Scan(&ms.MaterialID, &ms.ProjectName, &tags, &kind, &platform,
			&ms.Target, &ms.ItemCount, &hasSummary, &savedAt); err != nil {
			return nil, &model.StorageError{Op: "list", Err: fmt.Errorf("scan material: %w", err)}
		}
		ms.Tags = splitCommaList(tags)
		ms.Kind = model.MaterialKind(kind)
		ms.Platform = model.Platform(platform)
		ms.HasSummary = hasSummary == 1
		ms.SavedAt, _ = time.Parse(timeLayout, savedAt)
		summaries = append(summaries, ms)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "list", Err: err}
	}
	return summaries, nil
}

// Get returns a full material by its ID.
func (s *SQLite) Get(ctx context.Context, materialID string) (*model.Material, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT material_id, project_name, tags, kind, fetch_params, raw_items,
		        ai_summary, report_text, source_material_ids, model_used, saved_at
		 FROM materials WHERE material_id = ?`, materialID,
	)

	var m model.Material
	var tags, kind, fetchParams, rawItems, sourceIDs, savedAt string
	var aiSummary sql.NullString
	err := row.Scan(&m.MaterialID, &m.ProjectName, &tags, &kind, &fetchParams,
		&rawItems, &aiSummary, &m.ReportText, &sourceIDs, &m.ModelUsed, &savedAt)
	if err == sql.ErrNoRows {
		return nil, &model.MaterialNotFoundError{MaterialID: materialID}
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get", Err: fmt.Errorf("scan material: %w", err)}
	}

	m.Tags = splitCommaList(tags)
	m.Kind = model.MaterialKind(kind)
	m.SourceMaterialIDs = splitCommaList(sourceIDs)
	if err := json.Unmarshal([]byte(fetchParams), &m.FilterSpec); err != nil {
		return nil, &model.StorageError{Op: "get", Err: fmt.Errorf("parse fetch params: %w", err)}
	}
	if err := json.Unmarshal([]byte(rawItems), &m.RawItems); err != nil {
		return nil, &model.StorageError{Op: "get", Err: fmt.Errorf("parse items: %w", err)}
	}
	if aiSummary.Valid {
		var summary model.Summary
		if err := json.Unmarshal([]byte(aiSummary.String), &summary); err != nil {
			return nil, &model.StorageError{Op: "get", Err: fmt.Errorf("parse summary: %w", err)}
		}
		m.Summary = &summary
	}
	m.SavedAt, _ = time.Parse(timeLayout, savedAt)
	return &m, nil
}

// Delete removes a material by its ID.
func (s *SQLite) Delete(ctx context.Context, materialID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM materials WHERE material_id = ?`, materialID)
	if err != nil {
		return &model.StorageError{Op: "delete", Err: fmt.Errorf("delete material: %w", err)}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &model.StorageError{Op: "delete", Err: fmt.Errorf("rows affected: %w", err)}
	}
	if affected == 0 {
		return &model.MaterialNotFoundError{MaterialID: materialID}
	}
	return nil
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
