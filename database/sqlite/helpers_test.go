package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/sagarc03/filedock"
	"github.com/sagarc03/filedock/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	assert.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

func randomTables(t *testing.T) filedock.Tables {
	t.Helper()
	suffix := getRandomString(t)
	return filedock.Tables{
		Folders: "folders_" + suffix,
		Files:   "files_" + suffix,
	}
}

// setupTestRepos migrates a fresh in-memory database for one test.
func setupTestRepos(t *testing.T) (filedock.FolderRepo, filedock.FileRepo) {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite.Connect(ctx, ":memory:", randomTables(t))
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx), "failed to migrate")

	return db.FolderRepo(), db.FileRepo()
}
