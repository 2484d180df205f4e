package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lms.com/internal/domain"
)

func titles(t *testing.T, f *fixture, query string) []string {
	t.Helper()
	books, err := f.search.SearchBooks(context.Background(), query)
	require.NoError(t, err)
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestSearchBooks(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "librarian")
	scifi := f.category(t, admin, "Science Fiction")
	history := f.category(t, admin, "History")
	f.book(t, admin, scifi.ID, "Dune", "Frank Herbert", 3)
	f.book(t, admin, scifi.ID, "Hyperion", "Dan Simmons", 0)
	f.book(t, admin, history.ID, "SPQR", "Mary Beard", 1)
	f.book(t, admin, history.ID, "100% Proof", "A_Writer", 1)

	assert.Equal(t, []string{"Dune"}, titles(t, f, "dune"))
	assert.Equal(t, []string{"Dune"}, titles(t, f, "HERBERT"))
	assert.Equal(t, []string{"Dune", "Hyperion"}, titles(t, f, "fiction"))

	// LIKE wildcards match literally
	assert.Equal(t, []string{"100% Proof"}, titles(t, f, "%"))
	assert.Equal(t, []string{"100% Proof"}, titles(t, f, "a_w"))

	assert.Empty(t, titles(t, f, "zzz"))
}

func TestSearchBooks_NonASCIICase(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "librarian")
	cat := f.category(t, admin, "Philosophie")
	f.book(t, admin, cat.ID, "Émile", "Jean-Jacques Rousseau", 2)
	f.book(t, admin, cat.ID, "Ästhetik", "Georg Lukács", 1)

	assert.Equal(t, []string{"Émile"}, titles(t, f, "ÉMILE"))
	assert.Equal(t, []string{"Émile"}, titles(t, f, "émile"))
	assert.Equal(t, []string{"Ästhetik"}, titles(t, f, "LUKÁCS"))
	assert.Equal(t, []string{"Ästhetik", "Émile"}, titles(t, f, "PHILOSOPHIE"))
}

func TestSearchBooks_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	admin := f.admin(t, "librarian")
	cat := f.category(t, admin, "Fiction")
	f.book(t, admin, cat.ID, "Dune", "Frank Herbert", 3)

	books, err := f.search.SearchBooks(context.Background(), "   ")
	require.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)
}

func TestSearchStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.admin(t, "librarian")
	alice := f.student(t, "alice", "S-1001")
	f.student(t, "bob", "S-2002")

	found, err := f.search.SearchStudents(ctx, admin, "ALI")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "S-1001", found[0].StudentNo)
	require.NotNil(t, found[0].User)
	assert.Equal(t, "alice", found[0].User.Username)

	found, err = f.search.SearchStudents(ctx, admin, "s-")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.search.SearchStudents(ctx, admin, "")
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = f.accounts.RegisterStudent(ctx, domain.StudentRegistration{
		Username:  "zoë",
		Email:     "zoe@example.com",
		Password:  "password123",
		Password2: "password123",
		StudentNo: "S-3003",
		Grade:     "11",
	})
	require.NoError(t, err)
	found, err = f.search.SearchStudents(ctx, admin, "ZOË")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "S-3003", found[0].StudentNo)

	_, err = f.search.SearchStudents(ctx, alice, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
