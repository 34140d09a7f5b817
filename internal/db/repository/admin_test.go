package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "alpine-bot/internal/db"
	"alpine-bot/internal/domain"
)

func TestAdminRepo_AddRemove(t *testing.T) {
	writeDB, _ := internaldb.OpenTestSQLite(t)
	repo := NewAdminRepo(writeDB)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, "u1"))
	require.NoError(t, repo.Add(ctx, "u1"))

	ok, err := repo.IsAdmin(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	admins, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "u1", admins[0].UserID)

	require.NoError(t, repo.Remove(ctx, "u1"))
	ok, err = repo.IsAdmin(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	var nf *domain.NotFoundError
	require.ErrorAs(t, repo.Remove(ctx, "u1"), &nf)
}

func TestAdminRepo_SurvivesPrincipalPurge(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	admins := NewAdminRepo(writeDB)
	ents := NewEntitlementRepo(writeDB, readDB)
	ctx := context.Background()

	require.NoError(t, ents.RegisterGroup(ctx, domain.Group{Name: "g", Kind: domain.GroupBasic}, []string{"g.x"}))
	require.NoError(t, admins.Add(ctx, "u1"))
	_, err := ents.GrantCommand(ctx, domain.User("u1"), "g.x", "g")
	require.NoError(t, err)
	_, err = ents.RevokeCommand(ctx, domain.User("u1"), "g.x")
	require.NoError(t, err)

	ok, err := admins.IsAdmin(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
