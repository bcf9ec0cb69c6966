package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/altozano-realty/intake-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	latitude     REAL,
	longitude    REAL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS leads (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	phone          TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	property_id    TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	source         TEXT NOT NULL DEFAULT '',
	operation_type TEXT NOT NULL DEFAULT '',
	neighborhood   TEXT NOT NULL DEFAULT '',
	pipeline_stage TEXT NOT NULL DEFAULT 'new',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS visits (
	id             TEXT PRIMARY KEY,
	property_id    TEXT NOT NULL,
	name           TEXT NOT NULL,
	phone          TEXT NOT NULL,
	email          TEXT NOT NULL DEFAULT '',
	preferred_date TEXT NOT NULL DEFAULT '',
	message        TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	agent_notes    TEXT NOT NULL DEFAULT '',
	interest_level INTEGER,
	feedback_tags  TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS visit_photos (
	id         TEXT PRIMARY KEY,
	visit_id   TEXT NOT NULL REFERENCES visits(id),
	url        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_pipeline_stage ON leads(pipeline_stage);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_visits_status ON visits(status);
CREATE INDEX IF NOT EXISTS idx_visits_property_id ON visits(property_id);
CREATE INDEX IF NOT EXISTS idx_visit_photos_visit_id ON visit_photos(visit_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// checkRowsAffected converts a zero-row update into a not-found error.
func checkRowsAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", kind, id)
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", kind, id)
	}
	return nil
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	lead.ID = uuid.New().String()
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, phone, email, property_id, message, source, operation_type, neighborhood, pipeline_stage, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.PropertyID, lead.Message,
		lead.Source, lead.OperationType, lead.Neighborhood, string(lead.PipelineStage), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

func (s *SQLiteStore) UpdateLeadStage(ctx context.Context, leadID string, stage model.PipelineStage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET pipeline_stage = ?, updated_at = ? WHERE id = ?`,
		string(stage), time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead stage %s", leadID)
	}
	return checkRowsAffected(res, "lead", leadID)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, name, phone, email, property_id, message, source, operation_type, neighborhood, pipeline_stage, created_at, updated_at FROM leads WHERE 1=1`
	var args []any

	if filter.Stage != "" {
		query += ` AND pipeline_stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.PropertyID, &l.Message,
			&l.Source, &l.OperationType, &l.Neighborhood, &l.PipelineStage, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CreateVisit(ctx context.Context, visit model.Visit) (*model.Visit, error) {
	visit.ID = uuid.New().String()
	now := time.Now().UTC()
	visit.CreatedAt = now
	visit.UpdatedAt = now

	var tagsJSON any
	if visit.FeedbackTags != nil {
		b, err := json.Marshal(visit.FeedbackTags)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal feedback tags")
		}
		tagsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (id, property_id, name, phone, email, preferred_date, message, status, agent_notes, interest_level, feedback_tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		visit.ID, visit.PropertyID, visit.Name, visit.Phone, visit.Email, visit.PreferredDate,
		visit.Message, string(visit.Status), visit.AgentNotes, visit.InterestLevel, tagsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert visit")
	}
	return &visit, nil
}

func (s *SQLiteStore) UpdateVisit(ctx context.Context, visitID string, patch model.VisitPatch) error {
	query := `UPDATE visits SET updated_at = ?`
	args := []any{time.Now().UTC()}

	if patch.Status != nil {
		query += `, status = ?`
		args = append(args, string(*patch.Status))
	}
	if patch.AgentNotes != nil {
		query += `, agent_notes = ?`
		args = append(args, *patch.AgentNotes)
	}
	if patch.InterestLevel != nil {
		query += `, interest_level = ?`
		args = append(args, *patch.InterestLevel)
	}
	if patch.FeedbackTags != nil {
		tagsJSON, err := json.Marshal(patch.FeedbackTags)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal feedback tags")
		}
		query += `, feedback_tags = ?`
		args = append(args, string(tagsJSON))
	}

	query += ` WHERE id = ?`
	args = append(args, visitID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update visit %s", visitID)
	}
	return checkRowsAffected(res, "visit", visitID)
}

func (s *SQLiteStore) DeleteVisit(ctx context.Context, visitID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM visit_photos WHERE visit_id = ?`, visitID); err != nil {
		return eris.Wrapf(err, "sqlite: delete visit photos %s", visitID)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM visits WHERE id = ?`, visitID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete visit %s", visitID)
	}
	return checkRowsAffected(res, "visit", visitID)
}

func (s *SQLiteStore) ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error) {
	query := `SELECT id, property_id, name, phone, email, preferred_date, message, status, agent_notes, interest_level, feedback_tags, created_at, updated_at FROM visits WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list visits")
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		var v model.Visit
		var tagsJSON sql.NullString
		if err := rows.Scan(&v.ID, &v.PropertyID, &v.Name, &v.Phone, &v.Email, &v.PreferredDate,
			&v.Message, &v.Status, &v.AgentNotes, &v.InterestLevel, &tagsJSON, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan visit")
		}
		if tagsJSON.Valid && tagsJSON.String != "" {
			if err := json.Unmarshal([]byte(tagsJSON.String), &v.FeedbackTags); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal feedback tags")
			}
		}
		visits = append(visits, v)
	}
	return visits, eris.Wrap(rows.Err(), "sqlite: list visits iterate")
}

func (s *SQLiteStore) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	var p model.Property
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, neighborhood, city, latitude, longitude, created_at, updated_at FROM properties WHERE id = ?`,
		propertyID,
	).Scan(&p.ID, &p.Title, &p.Neighborhood, &p.City, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: property %s", propertyID)
		}
		return nil, eris.Wrapf(err, "sqlite: get property %s", propertyID)
	}
	return &p, nil
}

func (s *SQLiteStore) ListGeocodeTargets(ctx context.Context, limit int) ([]model.GeocodeTarget, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, neighborhood, city FROM properties WHERE (latitude IS NULL OR longitude IS NULL) AND neighborhood <> '' LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list geocode targets")
	}
	defer rows.Close()

	var targets []model.GeocodeTarget
	for rows.Next() {
		var t model.GeocodeTarget
		if err := rows.Scan(&t.ID, &t.Neighborhood, &t.City); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan geocode target")
		}
		targets = append(targets, t)
	}
	return targets, eris.Wrap(rows.Err(), "sqlite: list geocode targets iterate")
}

func (s *SQLiteStore) CountGeocodeTargets(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM properties WHERE (latitude IS NULL OR longitude IS NULL) AND neighborhood <> ''`,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count geocode targets")
	}
	return n, nil
}

func (s *SQLiteStore) UpdatePropertyCoordinates(ctx context.Context, propertyID string, lat, lon float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET latitude = ?, longitude = ?, updated_at = ? WHERE id = ?`,
		lat, lon, time.Now().UTC(), propertyID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update property coordinates %s", propertyID)
	}
	return checkRowsAffected(res, "property", propertyID)
}

// InsertProperty seeds a property row. Listings management lives outside this
// subsystem; this exists for migrations and tests that need fixture rows.
func (s *SQLiteStore) InsertProperty(ctx context.Context, p model.Property) (*model.Property, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, title, neighborhood, city, latitude, longitude, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Neighborhood, p.City, p.Latitude, p.Longitude, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert property")
	}
	return &p, nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
