package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryRepository reads and writes the enrollment gallery.
type GalleryRepository struct {
	pool *Pool
}

func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// Load returns all enrollment embeddings grouped by person label. It
// implements gallery.Source.
func (r *GalleryRepository) Load(ctx context.Context) (map[string][]gallery.Embedding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.label, e.embedding
		FROM people p
		JOIN enrollments e ON e.person_id = p.id
		ORDER BY p.label, e.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]gallery.Embedding)
	for rows.Next() {
		var label string
		var vec pgvector.Vector
		if err := rows.Scan(&label, &vec); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		result[label] = append(result[label], vec.Slice())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return result, nil
}

// AddPerson creates a person record if it does not exist and returns
// its ID.
func (r *GalleryRepository) AddPerson(ctx context.Context, label, displayName string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO people (label, display_name) VALUES ($1, $2)
		ON CONFLICT (label) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id
	`, label, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert person: %w", err)
	}
	return id, nil
}

// AddEnrollment stores one reference embedding for a person.
func (r *GalleryRepository) AddEnrollment(ctx context.Context, personID int64, emb gallery.Embedding, source string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (person_id, embedding, source) VALUES ($1, $2, $3)
	`, personID, pgvector.NewVector(emb), source)
	if err != nil {
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// CountPeople returns the number of enrolled people.
func (r *GalleryRepository) CountPeople(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM people").Scan(&count); err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return count, nil
}

// CountEnrollments returns the number of stored reference embeddings.
func (r *GalleryRepository) CountEnrollments(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollments").Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// UnknownSighting is one unknown visitor aggregated across sightings.
type UnknownSighting struct {
	Fingerprint string
	SnapshotRef string
	FirstSeen   time.Time
	LastSeen    time.Time
	Sightings   int
}

// RecordUnknownSighting upserts an unknown visitor. Repeat sightings bump
// the counter and keep the first stored snapshot unless a new one is
// provided.
func (r *GalleryRepository) RecordUnknownSighting(ctx context.Context, fp string, emb gallery.Embedding, snapshotRef string, at time.Time) error {
	var vec any
	if len(emb) > 0 {
		vec = pgvector.NewVector(emb)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO unknown_sightings (fingerprint, embedding, snapshot_ref, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (fingerprint) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			sightings = unknown_sightings.sightings + 1,
			snapshot_ref = COALESCE(NULLIF(EXCLUDED.snapshot_ref, ''), unknown_sightings.snapshot_ref)
	`, fp, vec, snapshotRef, at.UTC())
	if err != nil {
		return fmt.Errorf("upsert unknown sighting: %w", err)
	}
	return nil
}

// GetUnknownSighting returns one unknown visitor by fingerprint, or nil
// if never sighted.
func (r *GalleryRepository) GetUnknownSighting(ctx context.Context, fp string) (*UnknownSighting, error) {
	var s UnknownSighting
	err := r.pool.QueryRow(ctx, `
		SELECT fingerprint, snapshot_ref, first_seen, last_seen, sightings
		FROM unknown_sightings WHERE fingerprint = $1
	`, fp).Scan(&s.Fingerprint, &s.SnapshotRef, &s.FirstSeen, &s.LastSeen, &s.Sightings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query unknown sighting: %w", err)
	}
	return &s, nil
}

// ListUnknownSightings returns unknown visitors ordered by most recent.
func (r *GalleryRepository) ListUnknownSightings(ctx context.Context, limit int) ([]UnknownSighting, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT fingerprint, snapshot_ref, first_seen, last_seen, sightings
		FROM unknown_sightings ORDER BY last_seen DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unknown sightings: %w", err)
	}
	defer rows.Close()

	var result []UnknownSighting
	for rows.Next() {
		var s UnknownSighting
		if err := rows.Scan(&s.Fingerprint, &s.SnapshotRef, &s.FirstSeen, &s.LastSeen, &s.Sightings); err != nil {
			return nil, fmt.Errorf("scan unknown sighting: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unknown sightings: %w", err)
	}
	return result, nil
}
