package credentials

import (
	"context"
	"database/sql"
	"time"
)

// MySQLRepository persists credentials in the api_key table, reading from the
// replica and writing to the primary like the rest of the service.
type MySQLRepository struct {
	wdb *sql.DB
	rdb *sql.DB
}

func NewMySQLRepository(wdb, rdb *sql.DB) *MySQLRepository {
	return &MySQLRepository{wdb: wdb, rdb: rdb}
}

func (r *MySQLRepository) Insert(ctx context.Context, cred *Credential) error {
	_, err := r.wdb.ExecContext(ctx, `
	INSERT INTO api_key (id, account_id, secret_hash, secret_salt, secret_prefix, label, created_at, active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, cred.ID, cred.AccountID, cred.Hash, cred.Salt, cred.Prefix, cred.Label, cred.CreatedAt, cred.Active)
	return err
}

func (r *MySQLRepository) ActiveByPrefix(ctx context.Context, prefix string) ([]Credential, error) {
	rows, err := r.rdb.QueryContext(ctx, `
	SELECT id, account_id, secret_hash, secret_salt, secret_prefix, label, created_at, last_used, active
	FROM api_key
	WHERE secret_prefix = ? AND active = 1
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func (r *MySQLRepository) IsActive(ctx context.Context, id string) (bool, error) {
	var active bool
	err := r.rdb.QueryRowContext(ctx, `SELECT active FROM api_key WHERE id = ?`, id).Scan(&active)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return active, nil
}

func (r *MySQLRepository) TouchLastUsed(ctx context.Context, id string, t time.Time) error {
	_, err := r.wdb.ExecContext(ctx, `UPDATE api_key SET last_used = ? WHERE id = ?`, t, id)
	return err
}

func (r *MySQLRepository) SetActive(ctx context.Context, accountID, id string, active bool) (bool, error) {
	res, err := r.wdb.ExecContext(ctx, `
	UPDATE api_key SET active = ? WHERE id = ? AND account_id = ?
	`, active, id, accountID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MySQLRepository) SetLabel(ctx context.Context, accountID, id, label string) (bool, error) {
	res, err := r.wdb.ExecContext(ctx, `
	UPDATE api_key SET label = ? WHERE id = ? AND account_id = ?
	`, label, id, accountID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MySQLRepository) Delete(ctx context.Context, accountID, id string) (bool, error) {
	res, err := r.wdb.ExecContext(ctx, `
	DELETE FROM api_key WHERE id = ? AND account_id = ?
	`, id, accountID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MySQLRepository) ListByAccount(ctx context.Context, accountID string) ([]Credential, error) {
	rows, err := r.rdb.QueryContext(ctx, `
	SELECT id, account_id, secret_hash, secret_salt, secret_prefix, label, created_at, last_used, active
	FROM api_key
	WHERE account_id = ?
	ORDER BY created_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCredentials(rows)
}

func scanCredentials(rows *sql.Rows) ([]Credential, error) {
	var creds []Credential
	for rows.Next() {
		var cred Credential
		var lastUsed sql.NullTime
		err := rows.Scan(
			&cred.ID,
			&cred.AccountID,
			&cred.Hash,
			&cred.Salt,
			&cred.Prefix,
			&cred.Label,
			&cred.CreatedAt,
			&lastUsed,
			&cred.Active,
		)
		if err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			cred.LastUsed = &t
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
