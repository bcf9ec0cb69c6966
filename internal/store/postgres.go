package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/altozano-realty/intake-cli/internal/db"
	"github.com/altozano-realty/intake-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot intake path.
var preparedStatements = map[string]string{
	"insert_lead":       `INSERT INTO leads (id, name, phone, email, property_id, message, source, operation_type, neighborhood, pipeline_stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"insert_visit":      `INSERT INTO visits (id, property_id, name, phone, email, preferred_date, message, status, agent_notes, interest_level, feedback_tags, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"update_lead_stage": `UPDATE leads SET pipeline_stage = $1, updated_at = $2 WHERE id = $3`,
	"get_property":      `SELECT id, title, neighborhood, city, latitude, longitude, created_at, updated_at FROM properties WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title        TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	city         TEXT NOT NULL DEFAULT '',
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
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
	feedback_tags  JSONB,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS visit_photos (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	visit_id   TEXT NOT NULL REFERENCES visits(id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_pipeline_stage ON leads(pipeline_stage);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_visits_status ON visits(status);
CREATE INDEX IF NOT EXISTS idx_visits_property_id ON visits(property_id);
CREATE INDEX IF NOT EXISTS idx_visit_photos_visit_id ON visit_photos(visit_id);
CREATE INDEX IF NOT EXISTS idx_properties_ungeocoded ON properties(neighborhood) WHERE latitude IS NULL;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	lead.ID = uuid.New().String()
	now := time.Now().UTC()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, name, phone, email, property_id, message, source, operation_type, neighborhood, pipeline_stage, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.PropertyID, lead.Message,
		lead.Source, lead.OperationType, lead.Neighborhood, string(lead.PipelineStage), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func (s *PostgresStore) UpdateLeadStage(ctx context.Context, leadID string, stage model.PipelineStage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET pipeline_stage = $1, updated_at = $2 WHERE id = $3`,
		string(stage), time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead stage %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: lead %s", leadID)
	}
	return nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error) {
	query := `SELECT id, name, phone, email, property_id, message, source, operation_type, neighborhood, pipeline_stage, created_at, updated_at FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Stage != "" {
		query += fmt.Sprintf(` AND pipeline_stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.PropertyID, &l.Message,
			&l.Source, &l.OperationType, &l.Neighborhood, &l.PipelineStage, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CreateVisit(ctx context.Context, visit model.Visit) (*model.Visit, error) {
	visit.ID = uuid.New().String()
	now := time.Now().UTC()
	visit.CreatedAt = now
	visit.UpdatedAt = now

	var tagsJSON []byte
	if visit.FeedbackTags != nil {
		var err error
		tagsJSON, err = json.Marshal(visit.FeedbackTags)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal feedback tags")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO visits (id, property_id, name, phone, email, preferred_date, message, status, agent_notes, interest_level, feedback_tags, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		visit.ID, visit.PropertyID, visit.Name, visit.Phone, visit.Email, visit.PreferredDate,
		visit.Message, string(visit.Status), visit.AgentNotes, visit.InterestLevel, tagsJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert visit")
	}
	return &visit, nil
}

// UpdateVisit applies a partial patch; only supplied fields are written.
// Re-applying the same value is a no-op success.
func (s *PostgresStore) UpdateVisit(ctx context.Context, visitID string, patch model.VisitPatch) error {
	query := `UPDATE visits SET updated_at = $1`
	args := []any{time.Now().UTC()}
	argIdx := 2

	if patch.Status != nil {
		query += fmt.Sprintf(`, status = $%d`, argIdx)
		args = append(args, string(*patch.Status))
		argIdx++
	}
	if patch.AgentNotes != nil {
		query += fmt.Sprintf(`, agent_notes = $%d`, argIdx)
		args = append(args, *patch.AgentNotes)
		argIdx++
	}
	if patch.InterestLevel != nil {
		query += fmt.Sprintf(`, interest_level = $%d`, argIdx)
		args = append(args, *patch.InterestLevel)
		argIdx++
	}
	if patch.FeedbackTags != nil {
		tagsJSON, err := json.Marshal(patch.FeedbackTags)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal feedback tags")
		}
		query += fmt.Sprintf(`, feedback_tags = $%d`, argIdx)
		args = append(args, tagsJSON)
		argIdx++
	}

	query += fmt.Sprintf(` WHERE id = $%d`, argIdx)
	args = append(args, visitID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update visit %s", visitID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: visit %s", visitID)
	}
	return nil
}

// DeleteVisit removes a visit and its photos. The photo delete is explicit so
// behavior matches the SQLite driver regardless of foreign key enforcement.
func (s *PostgresStore) DeleteVisit(ctx context.Context, visitID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM visit_photos WHERE visit_id = $1`, visitID); err != nil {
		return eris.Wrapf(err, "postgres: delete visit photos %s", visitID)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM visits WHERE id = $1`, visitID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete visit %s", visitID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: visit %s", visitID)
	}
	return nil
}

func (s *PostgresStore) ListVisits(ctx context.Context, filter model.VisitFilter) ([]model.Visit, error) {
	query := `SELECT id, property_id, name, phone, email, preferred_date, message, status, agent_notes, interest_level, feedback_tags, created_at, updated_at FROM visits WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.PropertyID != "" {
		query += fmt.Sprintf(` AND property_id = $%d`, argIdx)
		args = append(args, filter.PropertyID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list visits")
	}
	defer rows.Close()

	var visits []model.Visit
	for rows.Next() {
		v, err := scanVisitRow(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, *v)
	}
	return visits, eris.Wrap(rows.Err(), "postgres: list visits iterate")
}

// scanVisitRow scans a visit from the standard column order.
func scanVisitRow(row pgx.Row) (*model.Visit, error) {
	var v model.Visit
	var tagsJSON []byte
	if err := row.Scan(&v.ID, &v.PropertyID, &v.Name, &v.Phone, &v.Email, &v.PreferredDate,
		&v.Message, &v.Status, &v.AgentNotes, &v.InterestLevel, &tagsJSON, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan visit")
	}
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &v.FeedbackTags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal feedback tags")
		}
	}
	return &v, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, propertyID string) (*model.Property, error) {
	var p model.Property
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, neighborhood, city, latitude, longitude, created_at, updated_at FROM properties WHERE id = $1`,
		propertyID,
	).Scan(&p.ID, &p.Title, &p.Neighborhood, &p.City, &p.Latitude, &p.Longitude, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: property %s", propertyID)
		}
		return nil, eris.Wrapf(err, "postgres: get property %s", propertyID)
	}
	return &p, nil
}

func (s *PostgresStore) ListGeocodeTargets(ctx context.Context, limit int) ([]model.GeocodeTarget, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, neighborhood, city FROM properties WHERE (latitude IS NULL OR longitude IS NULL) AND neighborhood <> '' LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list geocode targets")
	}
	defer rows.Close()

	var targets []model.GeocodeTarget
	for rows.Next() {
		var t model.GeocodeTarget
		if err := rows.Scan(&t.ID, &t.Neighborhood, &t.City); err != nil {
			return nil, eris.Wrap(err, "postgres: scan geocode target")
		}
		targets = append(targets, t)
	}
	return targets, eris.Wrap(rows.Err(), "postgres: list geocode targets iterate")
}

func (s *PostgresStore) CountGeocodeTargets(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM properties WHERE (latitude IS NULL OR longitude IS NULL) AND neighborhood <> ''`,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count geocode targets")
	}
	return n, nil
}

func (s *PostgresStore) UpdatePropertyCoordinates(ctx context.Context, propertyID string, lat, lon float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET latitude = $1, longitude = $2, updated_at = $3 WHERE id = $4`,
		lat, lon, time.Now().UTC(), propertyID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update property coordinates %s", propertyID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: property %s", propertyID)
	}
	return nil
}
