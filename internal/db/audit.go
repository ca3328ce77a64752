package db

import "time"

// AuditEntry records a write the client issued on its own initiative
type AuditEntry struct {
	ID        int64
	ProjectID string
	Action    string
	Detail    string
	CreatedAt time.Time
}

// RecordAudit appends an entry to the audit log
func (db *DB) RecordAudit(projectID, action, detail string) (*AuditEntry, error) {
	result, err := db.Exec(`
		INSERT INTO audit_log (project_id, action, detail) VALUES (?, ?, ?)
	`, projectID, action, detail)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	e := &AuditEntry{}
	err = db.QueryRow(`
		SELECT id, project_id, action, detail, created_at
		FROM audit_log WHERE id = ?
	`, id).Scan(&e.ID, &e.ProjectID, &e.Action, &e.Detail, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListAudit returns audit entries for a project, oldest first
func (db *DB) ListAudit(projectID string) ([]AuditEntry, error) {
	rows, err := db.Query(`
		SELECT id, project_id, action, detail, created_at
		FROM audit_log
		WHERE project_id = ?
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Action, &e.Detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Audit records an entry and discards it; it satisfies controller.Auditor
func (db *DB) Audit(projectID, action, detail string) error {
	_, err := db.RecordAudit(projectID, action, detail)
	return err
}
