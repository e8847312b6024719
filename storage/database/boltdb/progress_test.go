package boltrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/progress"
	"github.com/trezcool/soma/testutil"
)

func TestProgressRepository_userKeys(t *testing.T) {
	repos := testutil.OpenBoltRepos(t)
	ctx := context.Background()
	maths := testutil.CreateSubject(t, repos.Subjects, "Maths", "")
	n := testutil.CreateNote(t, repos.Notes, maths, "Limits", "...")

	// each user ID is a prefix of the next one
	users := []string{"user", "user\x00", "user\x00" + maths.ID, "use", "1:user"}
	for _, user := range users {
		_, err := repos.Progress.ModifyProgress(ctx, progress.Key{UserID: user, SubjectID: maths.ID}, func(p *progress.Progress) error {
			p.CompleteNote(n.ID)
			p.Touch(core.Now())
			return nil
		})
		require.NoError(t, err)
	}

	for _, user := range users {
		all, err := repos.Progress.QueryProgress(ctx, user)
		require.NoError(t, err)
		if assert.Len(t, all, 1, "%q", user) {
			assert.Equal(t, user, all[0].UserID)
		}

		found, err := repos.Progress.FindProgressByNote(ctx, user, n.ID)
		require.NoError(t, err)
		assert.Equal(t, user, found.UserID)
	}
}
