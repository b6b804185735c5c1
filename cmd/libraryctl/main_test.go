// cmd/libraryctl/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/apperr"
	"librent/internal/membership"
)

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := &cli{out: &out}
	root := c.root()
	root.SetArgs(append([]string{
		"--local", filepath.Join(dir, "library.json"),
		"--session", filepath.Join(dir, "session.json"),
	}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	sess, err := loadSession(path, "api:x")
	require.NoError(t, err)
	assert.Nil(t, sess)

	u := &membership.Session{ID: 7, Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, saveSession(path, "api:x", u))

	sess, err = loadSession(path, "api:x")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, int64(7), sess.ID)

	other, err := loadSession(path, "local:lib.json")
	require.NoError(t, err)
	assert.Nil(t, other, "a session belongs to the backend it was made on")

	require.NoError(t, saveSession(path, "api:x", nil))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCLIRentFlowAgainstLocalLibrary(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "register", "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "welcome, Ada")

	out, err = runCLI(t, dir, "rent", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `rented "Software Engineering" (Basic)`)

	out, err = runCLI(t, dir, "rentals")
	require.NoError(t, err)
	assert.Contains(t, out, "Software Engineering")
	assert.Contains(t, out, "active")

	out, err = runCLI(t, dir, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")

	_, err = runCLI(t, dir, "rent", "2")
	assert.ErrorIs(t, err, errReported)
}

func TestCLIRejectsBadArguments(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "book", "abc")
	require.Error(t, err)
	assert.Contains(t, describe(err), "invalid book id")

	_, err = runCLI(t, t.TempDir(), "admin", "users")
	require.Error(t, err)
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))
}

func TestCLIBooksFiltersAndSearch(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "books", "--search", "orwell", "--category", "fiction")
	require.NoError(t, err)
	assert.Contains(t, out, "Animal Farm")
	assert.NotContains(t, out, "Clean Code")
	assert.Contains(t, out, "categories: Fantasy, Fiction, History, Technology")

	out, err = runCLI(t, dir, "search", "hobbit")
	require.NoError(t, err)
	assert.Contains(t, out, "The Hobbit")
	assert.NotContains(t, out, "Sapiens")
}

func TestCLIRentChecksTiersAndPointsHistory(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "register", "Ada", "ada@example.com", "secret")
	require.NoError(t, err)

	_, err = runCLI(t, dir, "rent", "1", "--days", "7")
	assert.ErrorIs(t, err, errReported)

	out, err := runCLI(t, dir, "tiers")
	require.NoError(t, err)
	assert.Contains(t, out, "Expert")

	_, err = runCLI(t, dir, "rate", "1", "4")
	require.NoError(t, err)
	out, err = runCLI(t, dir, "points")
	require.NoError(t, err)
	assert.Contains(t, out, "rating published: book #1")
}

func TestCLIAdminCommands(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "register", "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	_, err = runCLI(t, dir, "admin", "flag", "2")
	assert.ErrorIs(t, err, errReported, "readers cannot flag")

	_, err = runCLI(t, dir, "login", "admin", "admin")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "admin", "add-book", "--title", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)
	assert.Contains(t, out, `added "Dune" as book #9`)

	out, err = runCLI(t, dir, "admin", "flag", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "user #2 flagged")

	out, err = runCLI(t, dir, "admin", "clear", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "user #2 cleared")
}
