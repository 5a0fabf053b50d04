package service

import (
	"testing"
	"trivia_backend/internal/model"
	"trivia_backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminDashboard(t *testing.T) {
	ts := newTestServices(t)
	admin := NewAdminService(
		repository.NewUserRepository(ts.db),
		ts.games.GameRepo,
		ts.custom.CustomRepo,
	)

	empty, err := admin.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, "N/A", empty.MostPopular.Category)
	assert.Zero(t, empty.AvgGamesPerUser)
	assert.Empty(t, empty.RecentGames)

	alice := seedUser(t, ts.db, "alice")
	bob := seedUser(t, ts.db, "bob")
	seedUser(t, ts.db, "carol")
	seedGame(t, ts.db, model.Game{UserID: alice.ID, Score: 3, TotalQuestions: 5, Category: "Music"})
	seedGame(t, ts.db, model.Game{UserID: alice.ID, Score: 3, TotalQuestions: 5, Category: "Music", Visibility: model.VisibilityPrivate})
	seedGame(t, ts.db, model.Game{UserID: bob.ID, Score: 3, TotalQuestions: 5, Category: "History"})
	seedGame(t, ts.db, model.Game{UserID: bob.ID, Score: 3, TotalQuestions: 5, Category: "Music"})
	_, err = ts.custom.Submit(bob.ID, validSubmission())
	require.NoError(t, err)

	d, err := admin.Dashboard()
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.TotalUsers)
	assert.Equal(t, int64(4), d.TotalGames)
	assert.Equal(t, int64(3), d.PublicGames)
	assert.Equal(t, 1.3, d.AvgGamesPerUser)
	assert.Equal(t, PopularCategory{Category: "Music", Plays: 3}, d.MostPopular)
	assert.Len(t, d.RecentUsers, 3)
	assert.Equal(t, "carol", d.RecentUsers[0].Username)
	assert.Len(t, d.RecentGames, 4)
	require.Len(t, d.PendingSubmissions, 1)
}
