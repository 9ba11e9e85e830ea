package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/newspaper/config"
	"github.com/cppla/newspaper/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		LogLevel:    "silent",
	}, models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func seed(t *testing.T, db *gorm.DB) (alice, bob models.User, art models.Article) {
	t.Helper()
	alice = models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob = models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&alice).Error)
	require.NoError(t, db.Create(&bob).Error)

	art = models.Article{Title: "Hello", Body: "World", AuthorID: alice.ID}
	require.NoError(t, db.Create(&art).Error)
	require.NoError(t, db.Create(&models.Comment{ArticleID: art.ID, AuthorID: bob.ID, Body: "hi"}).Error)
	require.NoError(t, db.Create(&models.Comment{ArticleID: art.ID, AuthorID: alice.ID, Body: "thanks"}).Error)
	return alice, bob, art
}

func TestUser_Defaults(t *testing.T) {
	db := openDB(t)
	u := models.NewUser("carol", "carol@example.com", "x")
	require.NoError(t, db.Create(u).Error)

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsStaff)
	assert.False(t, got.IsSuperuser)
	assert.Nil(t, got.Age)
	assert.Nil(t, got.LastLogin)
	assert.False(t, got.DateJoined.IsZero())
}

func TestUser_CreateKeepsInactiveFlag(t *testing.T) {
	db := openDB(t)
	u := models.User{Username: "dave", Email: "dave@example.com", PasswordHash: "x", IsActive: false}
	require.NoError(t, db.Create(&u).Error)

	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.False(t, got.IsActive)
}

func TestUser_UniqueUsername(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Create(&models.User{Username: "dup", Email: "a@example.com", PasswordHash: "x"}).Error)
	err := db.Create(&models.User{Username: "dup", Email: "b@example.com", PasswordHash: "x"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDeleteUser_CascadesArticlesAndComments(t *testing.T) {
	db := openDB(t)
	alice, bob, _ := seed(t, db)

	require.NoError(t, db.Delete(&alice).Error)

	assert.Equal(t, int64(0), count(t, db, &models.Article{}))
	assert.Equal(t, int64(0), count(t, db, &models.Comment{}))
	assert.Equal(t, int64(1), count(t, db, &models.User{}))

	var left models.User
	require.NoError(t, db.First(&left).Error)
	assert.Equal(t, bob.ID, left.ID)
}

func TestDeleteCommenter_KeepsArticle(t *testing.T) {
	db := openDB(t)
	_, bob, art := seed(t, db)

	require.NoError(t, db.Delete(&bob).Error)

	assert.Equal(t, int64(1), count(t, db, &models.Article{}))
	var left []models.Comment
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "thanks", left[0].Body)
	assert.Equal(t, art.ID, left[0].ArticleID)
}

func TestDeleteArticle_CascadesComments(t *testing.T) {
	db := openDB(t)
	_, _, art := seed(t, db)

	require.NoError(t, db.Delete(&art).Error)
	assert.Equal(t, int64(0), count(t, db, &models.Comment{}))
}

func TestArticle_AbsoluteURL(t *testing.T) {
	assert.Equal(t, "/articles/details/42", models.Article{ID: 42}.AbsoluteURL())
	assert.Equal(t, "Hello", models.Article{Title: "Hello"}.String())
}
