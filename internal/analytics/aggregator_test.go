package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"gorm.io/gorm"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repository.InitDB("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixtureMovie struct {
	movie  model.Movie
	cast   []string
	events []model.WatchEvent
}

// seed 写入一个小型片库：
//
//	Heat        Mann      170min 4.5  3 次（1 首看 + 2 重看，跨 1 月/2 月边界）
//	Collateral  Mann      120min 4.0  1 次
//	Thief       Mann      -      -    1 次
//	Taxi Driver Scorsese  114min 5.0  1 次（仅重看）
//	Unrated     -         100min -    1 次
func seed(t *testing.T) *gorm.DB {
	t.Helper()
	db := openDB(t)
	require.NoError(t, repository.ResetSchema(db))
	repos := repository.NewRepositories(db)

	fixtures := []fixtureMovie{
		{
			movie: model.Movie{TMDBID: intPtr(949), Title: "Heat", Director: strPtr("Michael Mann"), Year: intPtr(1995), RuntimeMinutes: intPtr(170), Rating: floatPtr(4.5)},
			cast:  []string{"Al Pacino", "Robert De Niro"},
			events: []model.WatchEvent{
				{WatchedDate: "2024-01-15"},
				{WatchedDate: "2024-01-31", IsRewatch: true},
				{WatchedDate: "2024-02-01", IsRewatch: true},
			},
		},
		{
			movie:  model.Movie{TMDBID: intPtr(1538), Title: "Collateral", Director: strPtr("Michael Mann"), Year: intPtr(2004), RuntimeMinutes: intPtr(120), Rating: floatPtr(4.0)},
			cast:   []string{"Tom Cruise", "Jamie Foxx"},
			events: []model.WatchEvent{{WatchedDate: "2024-02-10"}},
		},
		{
			movie:  model.Movie{TMDBID: intPtr(11524), Title: "Thief", Director: strPtr("Michael Mann"), Year: intPtr(1981)},
			cast:   []string{"James Caan"},
			events: []model.WatchEvent{{WatchedDate: "2024-02-11"}},
		},
		{
			movie:  model.Movie{TMDBID: intPtr(103), Title: "Taxi Driver", Director: strPtr("Martin Scorsese"), Year: intPtr(1976), RuntimeMinutes: intPtr(114), Rating: floatPtr(5.0)},
			cast:   []string{"Robert De Niro"},
			events: []model.WatchEvent{{WatchedDate: "2024-03-05", IsRewatch: true}},
		},
		{
			movie:  model.Movie{TMDBID: intPtr(1), Title: "Unrated", RuntimeMinutes: intPtr(100)},
			events: []model.WatchEvent{{WatchedDate: "2024-03-06"}},
		},
	}

	for _, f := range fixtures {
		m := f.movie
		movieID, err := repos.Movie.UpsertByTMDBID(&m)
		require.NoError(t, err)

		var personIDs []uint
		for _, name := range f.cast {
			id, err := repos.Person.GetOrCreate(name)
			require.NoError(t, err)
			personIDs = append(personIDs, id)
		}
		require.NoError(t, repos.Cast.Replace(movieID, personIDs))

		for _, e := range f.events {
			e.MovieID = movieID
			require.NoError(t, repos.WatchEvent.Create(&e))
		}
	}
	return db
}

func TestAggregator_Counts(t *testing.T) {
	agg := NewAggregator(seed(t))
	ctx := context.Background()

	movies, err := agg.MovieCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), movies)

	directors, err := agg.DirectorCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), directors)
}

func TestAggregator_Durations(t *testing.T) {
	agg := NewAggregator(seed(t))

	d, err := agg.Durations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(170*3+120+114+100), d.Watched.Minutes)
	assert.Equal(t, int64(170+120+114+100), d.Library.Minutes)
	assert.InDelta(t, float64(504)/60, d.Library.Hours, 1e-9)
}

func TestAggregator_DurationsEmpty(t *testing.T) {
	db := openDB(t)
	require.NoError(t, repository.ResetSchema(db))

	d, err := NewAggregator(db).Durations(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.Watched.Minutes)
	assert.Zero(t, d.Library.Minutes)
	assert.Zero(t, d.Library.Hours)
}

func TestAggregator_RatingDistribution(t *testing.T) {
	db := seed(t)
	agg := NewAggregator(db)

	buckets, err := agg.RatingDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.RatingBucket{
		{Rating: 4.0, Count: 1},
		{Rating: 4.5, Count: 3},
		{Rating: 5.0, Count: 1},
	}, buckets)

	// 分布总和 = 关联到已评分电影的日记条数
	var sum int64
	for _, b := range buckets {
		sum += b.Count
	}
	var rated int64
	require.NoError(t, db.Table("watch_events").
		Joins("JOIN movies ON movies.id = watch_events.movie_id").
		Where("movies.rating IS NOT NULL").
		Count(&rated).Error)
	assert.Equal(t, rated, sum)
}

func TestAggregator_MonthlyStats(t *testing.T) {
	agg := NewAggregator(seed(t))

	months, err := agg.MonthlyStats(context.Background())
	require.NoError(t, err)
	require.Len(t, months, 3)

	jan, feb, mar := months[0], months[1], months[2]

	assert.Equal(t, "2024-01", jan.Month)
	assert.Equal(t, "Jan", jan.Label)
	assert.Equal(t, int64(2), jan.Watches, "2024-01-31 stays in January")
	assert.Equal(t, int64(1), jan.Rewatches)
	assert.Equal(t, int64(340), jan.Minutes)
	require.NotNil(t, jan.AvgRating)
	assert.InDelta(t, 4.5, *jan.AvgRating, 1e-9)

	assert.Equal(t, "2024-02", feb.Month)
	assert.Equal(t, int64(3), feb.Watches, "2024-02-01 opens February")
	assert.Equal(t, int64(1), feb.Rewatches)
	assert.Equal(t, int64(290), feb.Minutes)
	assert.InDelta(t, 290.0/60, feb.Hours, 1e-9)
	require.NotNil(t, feb.AvgRating)
	assert.InDelta(t, 4.25, *feb.AvgRating, 1e-9)

	assert.Equal(t, "Mar", mar.Label)
	assert.Equal(t, int64(2), mar.Watches)
	assert.Equal(t, int64(214), mar.Minutes)
}

func TestAggregator_MonthlyStatsUnratedMonth(t *testing.T) {
	db := openDB(t)
	require.NoError(t, repository.ResetSchema(db))
	repos := repository.NewRepositories(db)
	id, err := repos.Movie.UpsertByTMDBID(&model.Movie{TMDBID: intPtr(1), Title: "Unrated"})
	require.NoError(t, err)
	require.NoError(t, repos.WatchEvent.Create(&model.WatchEvent{MovieID: id, WatchedDate: "2023-12-24"}))

	months, err := NewAggregator(db).MonthlyStats(context.Background())
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, "Dec", months[0].Label)
	assert.Nil(t, months[0].AvgRating)
	assert.Zero(t, months[0].Minutes)
}

func TestAggregator_Directors(t *testing.T) {
	agg := NewAggregator(seed(t))
	ctx := context.Background()

	most, err := agg.TopDirectorsMostWatched(ctx, 5)
	require.NoError(t, err)
	require.Len(t, most, 2)
	assert.Equal(t, "Michael Mann", most[0].Name)
	assert.Equal(t, int64(5), most[0].WatchCount)
	assert.Equal(t, int64(3), most[0].MovieCount)
	require.NotNil(t, most[0].AvgRating)
	assert.InDelta(t, (4.5*3+4.0)/4, *most[0].AvgRating, 1e-9)
	assert.Equal(t, "Martin Scorsese", most[1].Name)

	best, err := agg.TopDirectorsHighestRated(ctx, 5)
	require.NoError(t, err)
	require.Len(t, best, 1, "single-movie directors are excluded")
	assert.Equal(t, "Michael Mann", best[0].Name)
	assert.Equal(t, int64(2), best[0].MovieCount, "unrated movie is not counted")
}

func TestAggregator_Actors(t *testing.T) {
	agg := NewAggregator(seed(t))
	ctx := context.Background()

	most, err := agg.TopActorsMostWatched(ctx, 3)
	require.NoError(t, err)
	require.Len(t, most, 3)
	assert.Equal(t, "Robert De Niro", most[0].Name)
	assert.Equal(t, int64(4), most[0].WatchCount)
	assert.Equal(t, int64(2), most[0].MovieCount)
	assert.Equal(t, "Al Pacino", most[1].Name)
	assert.Equal(t, "James Caan", most[2].Name, "ties are broken by name")

	best, err := agg.TopActorsHighestRated(ctx, 5)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, "Robert De Niro", best[0].Name)
	assert.InDelta(t, (4.5*3+5.0)/4, *best[0].AvgRating, 1e-9)
}

func TestAggregator_TopMovies(t *testing.T) {
	agg := NewAggregator(seed(t))

	top, err := agg.TopMovies(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 2, "rewatch-only and unrated movies are excluded")
	assert.Equal(t, "Heat", top[0].Title)
	assert.Equal(t, int64(3), top[0].WatchCount)
	assert.Equal(t, "Collateral", top[1].Title)
}

func TestAggregator_MoviesByPerson(t *testing.T) {
	agg := NewAggregator(seed(t))
	ctx := context.Background()

	mann, err := agg.MoviesByDirector(ctx, "Michael Mann")
	require.NoError(t, err)
	require.Len(t, mann, 3)
	assert.Equal(t, "Heat", mann[0].Title)
	assert.Equal(t, "Collateral", mann[1].Title)
	assert.Equal(t, "Thief", mann[2].Title, "unrated last")
	require.NotNil(t, mann[0].TMDBID)
	assert.Equal(t, 949, *mann[0].TMDBID)

	deniro, err := agg.MoviesByActor(ctx, "Robert De Niro")
	require.NoError(t, err)
	require.Len(t, deniro, 2)
	assert.Equal(t, "Taxi Driver", deniro[0].Title)
	assert.Equal(t, "Heat", deniro[1].Title)

	none, err := agg.MoviesByActor(ctx, "robert de niro")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAggregator_Report(t *testing.T) {
	agg := NewAggregator(seed(t))

	report, err := agg.Report(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.General.MovieCount)
	assert.Len(t, report.General.Monthly, 3)
	assert.Len(t, report.Rankings.Actors.MostWatched, DefaultTopK)
	assert.Len(t, report.Rankings.Movies.TopWatched, 2)
}

func TestAggregator_ReportRequiresBuild(t *testing.T) {
	_, err := NewAggregator(openDB(t)).Report(context.Background(), 5)
	assert.ErrorIs(t, err, repository.ErrNoDatabase)
}
