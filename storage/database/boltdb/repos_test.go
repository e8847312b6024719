package boltrepos_test

import (
	"testing"

	"github.com/trezcool/soma/testutil"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, testutil.OpenBoltRepos)
}
