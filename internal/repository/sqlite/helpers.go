package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"intratel/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Row Scanning
// ============================================================================

// labRow holds the raw columns of one labs row
type labRow struct {
	name        string
	description sql.NullString
	snapshot    sql.NullString
	createdAt   time.Time
	updatedAt   time.Time
}

func (r *labRow) scanArgs() []interface{} {
	return []interface{}{
		&r.name,
		&r.description,
		&r.snapshot,
		&r.createdAt,
		&r.updatedAt,
	}
}

func (r *labRow) toDomain() (*domain.Lab, error) {
	lab := &domain.Lab{
		Name:        r.name,
		Description: nullToString(r.description),
		Snapshot:    &domain.Snapshot{},
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}

	if err := unmarshalJSONField(r.snapshot, lab.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for lab %s: %w", r.name, err)
	}

	return lab, nil
}
