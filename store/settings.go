package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"curator/config"
)

// LoadSettings returns this tenant's curation settings. ErrNotFound is
// returned when the tenant has never saved any; the caller decides
// whether to fall back to config.Defaults().
func (t *TenantStore) LoadSettings(ctx context.Context) (config.Settings, error) {
	var s config.Settings
	err := t.db.QueryRowContext(ctx,
		`SELECT relevance_threshold, similarity_threshold, max_age_days, lookback_days, brand_voice
		 FROM org_settings WHERE org_id = ?`,
		t.orgID,
	).Scan(&s.RelevanceThreshold, &s.SimilarityThreshold, &s.MaxAgeDays, &s.LookbackDays, &s.BrandVoice)
	if err == sql.ErrNoRows {
		return config.Settings{}, ErrNotFound
	}
	if err != nil {
		return config.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

// SaveSettings upserts this tenant's curation settings.
func (t *TenantStore) SaveSettings(ctx context.Context, s config.Settings) error {
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO org_settings (org_id, relevance_threshold, similarity_threshold, max_age_days, lookback_days, brand_voice)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (org_id) DO UPDATE SET
		   relevance_threshold = excluded.relevance_threshold,
		   similarity_threshold = excluded.similarity_threshold,
		   max_age_days = excluded.max_age_days,
		   lookback_days = excluded.lookback_days,
		   brand_voice = excluded.brand_voice`,
		t.orgID, s.RelevanceThreshold, s.SimilarityThreshold, s.MaxAgeDays, s.LookbackDays, s.BrandVoice,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Source is a configured feed for one tenant.
type Source struct {
	ID        int64     `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AddSource registers a feed source for this tenant.
func (t *TenantStore) AddSource(ctx context.Context, src *Source) error {
	now := time.Now().UTC()
	res, err := t.db.ExecContext(ctx,
		`INSERT INTO sources (org_id, name, url, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.orgID, src.Name, src.URL, boolToInt(src.IsActive), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.OrgID = t.orgID
	src.CreatedAt = now
	return nil
}

// ListSources returns this tenant's active feed sources.
func (t *TenantStore) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, org_id, name, url, is_active, created_at
		 FROM sources WHERE org_id = ? AND is_active = 1 ORDER BY id`,
		t.orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []Source
	for rows.Next() {
		var src Source
		var active int
		var createdAt string
		if err := rows.Scan(&src.ID, &src.OrgID, &src.Name, &src.URL, &active, &createdAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.IsActive = active != 0
		src.CreatedAt = parseTime(createdAt)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
