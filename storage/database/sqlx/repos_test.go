package sqlxrepos_test

import (
	"testing"

	"github.com/trezcool/soma/testutil"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) testutil.Repos {
		return testutil.SQLRepos(testutil.PrepareDB(t))
	})
}
