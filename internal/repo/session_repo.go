package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/markport/internal/model"
	"github.com/xxxsen/markport/internal/pkg/dbutil"
	appErr "github.com/xxxsen/markport/internal/pkg/errors"
)

type SessionRepo struct {
	db     *sql.DB
	driver string
}

func NewSessionRepo(db *sql.DB, driver string) *SessionRepo {
	return &SessionRepo{db: db, driver: driver}
}

// Upsert stores the session of sess.OwnerID, replacing an older one.
func (r *SessionRepo) Upsert(ctx context.Context, sess *model.RemoteSession) error {
	const query = `
		INSERT INTO remote_sessions (owner_id, service_url, access_token, ctime, mtime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET
			service_url = excluded.service_url,
			access_token = excluded.access_token,
			mtime = excluded.mtime
	`
	sqlStr, args := dbutil.Finalize(r.driver, query, []interface{}{
		sess.OwnerID, sess.ServiceURL, sess.AccessToken, sess.Ctime, sess.Mtime,
	})
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SessionRepo) GetByOwner(ctx context.Context, ownerID string) (*model.RemoteSession, error) {
	sqlStr, args, err := builder.BuildSelect("remote_sessions",
		map[string]interface{}{"owner_id": ownerID},
		[]string{"owner_id", "service_url", "access_token", "ctime", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	var sess model.RemoteSession
	err = r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&sess.OwnerID, &sess.ServiceURL, &sess.AccessToken, &sess.Ctime, &sess.Mtime,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

func (r *SessionRepo) Delete(ctx context.Context, ownerID string) error {
	sqlStr, args, err := builder.BuildDelete("remote_sessions", map[string]interface{}{"owner_id": ownerID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(r.driver, sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
