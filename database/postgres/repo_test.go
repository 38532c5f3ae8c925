package postgres_test

import (
	"testing"

	"github.com/sagarc03/filedock/database/internal/repotest"
)

func TestRepos(t *testing.T) {
	repotest.Run(t, setupTestRepos)
}
