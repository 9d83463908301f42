package repository

import (
	"context"
	"testing"
	"time"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepository_Upsert(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Group{Title: "Cats", Slug: "cats", Description: "meow"}))
	require.NoError(t, repo.Upsert(ctx, &models.Group{Title: "Cats and kittens", Slug: "cats", Description: "purr"}))

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Cats and kittens", groups[0].Title)
	assert.Equal(t, "purr", groups[0].Description)
}

func TestGroupRepository_GetBySlug(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGroupRepository(db)
	cats := testutil.CreateGroup(t, db, "cats")

	got, err := repo.GetBySlug(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, cats.ID, got.ID)

	_, err = repo.GetBySlug(context.Background(), "dogs")
	assert.True(t, models.IsNotFound(err))
}

func TestGroupRepository_DeleteKeepsPosts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo")
	cats := testutil.CreateGroup(t, db, "cats")
	post := testutil.CreatePost(t, db, author, cats, "in cats", time.Now())

	require.NoError(t, repo.DeleteBySlug(ctx, "cats"))
	assert.True(t, models.IsNotFound(repo.DeleteBySlug(ctx, "cats")))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Nil(t, reloaded.GroupID)
}
