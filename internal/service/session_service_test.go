package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/markport/internal/pkg/errors"
	"github.com/xxxsen/markport/internal/repo"
	dbtest "github.com/xxxsen/markport/test/testutil"
)

type recordingInvalidator struct {
	owners []string
}

func (r *recordingInvalidator) Invalidate(ownerID string) {
	r.owners = append(r.owners, ownerID)
}

func TestSessionServicePut(t *testing.T) {
	ctx := context.Background()
	sessions := repo.NewSessionRepo(dbtest.OpenTestDB(t), dbtest.TestDriver)
	cache := &recordingInvalidator{}
	svc := NewSessionService(sessions, cache)

	require.ErrorIs(t, svc.Put(ctx, owner, "ftp://pds.example.com", "tok"), appErr.ErrInvalid)
	require.ErrorIs(t, svc.Put(ctx, owner, "https://pds.example.com", " "), appErr.ErrInvalid)
	require.ErrorIs(t, svc.Put(ctx, "", "https://pds.example.com", "tok"), appErr.ErrInvalid)

	require.NoError(t, svc.Put(ctx, owner, "https://pds.example.com/", "tok"))
	sess, err := sessions.GetByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, "https://pds.example.com", sess.ServiceURL)
	assert.Equal(t, []string{owner}, cache.owners)

	require.NoError(t, svc.Delete(ctx, owner))
	_, err = sessions.GetByOwner(ctx, owner)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
