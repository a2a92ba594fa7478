package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moovie-wrapped/internal/config"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
	"github.com/user/moovie-wrapped/internal/service"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImages struct {
	err   error
	calls int
}

func (f *fakeImages) FetchImages(_ context.Context, id int) (*service.MovieImages, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &service.MovieImages{
		Posters:   []string{"/p1.jpg", "/p2.jpg", "/p3.jpg", "/p4.jpg", "/p5.jpg", "/p6.jpg"},
		Backdrops: []string{"/b1.jpg"},
	}, nil
}

func (f *fakeImages) ImageURL(size, path string) string {
	return "https://img.test/" + size + path
}

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

func seededDB(t *testing.T) (*gorm.DB, uint) {
	t.Helper()
	db := openDB(t)
	require.NoError(t, repository.ResetSchema(db))
	repos := repository.NewRepositories(db)

	tmdbID, runtime, rating, director := 949, 170, 4.5, "Michael Mann"
	id, err := repos.Movie.UpsertByTMDBID(&model.Movie{
		TMDBID: &tmdbID, Title: "Heat", Director: &director, RuntimeMinutes: &runtime, Rating: &rating,
	})
	require.NoError(t, err)
	pid, err := repos.Person.GetOrCreate("Al Pacino")
	require.NoError(t, err)
	require.NoError(t, repos.Cast.Replace(id, []uint{pid}))
	require.NoError(t, repos.WatchEvent.Create(&model.WatchEvent{MovieID: id, WatchedDate: "2024-03-01"}))
	return db, id
}

func testConfig() *config.Config {
	return &config.Config{TopK: 5, CacheTTL: time.Minute}
}

func newTestHandler(db *gorm.DB, images ImageSource) *Handler {
	return NewHandler(db, testConfig(), images)
}

func serve(h *Handler, method, path string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/healthz", h.Health)
	r.GET("/api/stats", h.Report)
	r.GET("/api/stats/general", h.General)
	r.GET("/api/stats/monthly", h.Monthly)
	r.GET("/api/stats/ratings", h.Ratings)
	r.GET("/api/stats/top", h.Top)
	r.GET("/api/movies/:id/images", h.MovieImages)
	r.GET("/api/directors/:name/movies", h.DirectorMovies)
	r.GET("/api/actors/:name/movies", h.ActorMovies)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil && env.Success {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestReport(t *testing.T) {
	db, _ := seededDB(t)
	h := newTestHandler(db, nil)

	w := serve(h, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var report model.Report
	env := decode(t, w, &report)
	assert.True(t, env.Success)
	assert.Equal(t, int64(1), report.General.MovieCount)
	assert.Equal(t, int64(170), report.General.Durations.Watched.Minutes)
	require.Len(t, report.Rankings.Directors.MostWatched, 1)
	assert.Equal(t, "Michael Mann", report.Rankings.Directors.MostWatched[0].Name)
}

func TestReport_InvalidK(t *testing.T) {
	db, _ := seededDB(t)
	h := newTestHandler(db, nil)

	for _, path := range []string{"/api/stats?k=0", "/api/stats/top?k=abc", "/api/stats?k=101"} {
		w := serve(h, http.MethodGet, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestReport_IsCached(t *testing.T) {
	db, id := seededDB(t)
	h := newTestHandler(db, nil)

	var first model.GeneralStats
	decode(t, serve(h, http.MethodGet, "/api/stats/general"), &first)

	repos := repository.NewRepositories(db)
	require.NoError(t, repos.WatchEvent.Create(&model.WatchEvent{MovieID: id, WatchedDate: "2024-04-01"}))

	var second model.GeneralStats
	decode(t, serve(h, http.MethodGet, "/api/stats/general"), &second)
	assert.Equal(t, first.Monthly, second.Monthly, "served from cache within the TTL")
}

func TestSections(t *testing.T) {
	db, _ := seededDB(t)
	h := newTestHandler(db, nil)

	var monthly []model.MonthlyStat
	decode(t, serve(h, http.MethodGet, "/api/stats/monthly"), &monthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, "Mar", monthly[0].Label)

	var ratings []model.RatingBucket
	decode(t, serve(h, http.MethodGet, "/api/stats/ratings"), &ratings)
	assert.Equal(t, []model.RatingBucket{{Rating: 4.5, Count: 1}}, ratings)

	var top model.Rankings
	decode(t, serve(h, http.MethodGet, "/api/stats/top?k=1"), &top)
	assert.Len(t, top.Actors.MostWatched, 1)
}

func TestNotBuilt(t *testing.T) {
	h := newTestHandler(openDB(t), &fakeImages{})

	for _, path := range []string{"/api/stats", "/api/stats/monthly", "/api/directors/x/movies", "/api/movies/1/images"} {
		w := serve(h, http.MethodGet, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		env := decode(t, w, nil)
		assert.False(t, env.Success)
	}

	w := serve(h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"built":false`)
}

func TestMovieImages(t *testing.T) {
	db, id := seededDB(t)
	images := &fakeImages{}
	h := newTestHandler(db, images)

	w := serve(h, http.MethodGet, "/api/movies/"+itoa(id)+"/images")
	require.Equal(t, http.StatusOK, w.Code)

	var resp MovieImagesResponse
	decode(t, w, &resp)
	assert.Equal(t, 949, resp.TMDBID)
	assert.Len(t, resp.Posters, maxImages)
	assert.Equal(t, "https://img.test/w780/p1.jpg", resp.Posters[0])
	assert.Equal(t, []string{"https://img.test/w1280/b1.jpg"}, resp.Backdrops)

	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/movies/999/images").Code)
	assert.Equal(t, http.StatusBadRequest, serve(h, http.MethodGet, "/api/movies/abc/images").Code)

	images.err = errors.New("tmdb down")
	assert.Equal(t, http.StatusBadGateway, serve(h, http.MethodGet, "/api/movies/"+itoa(id)+"/images").Code)
}

func TestMovieImages_NoCredentials(t *testing.T) {
	db, id := seededDB(t)
	h := newTestHandler(db, nil)

	w := serve(h, http.MethodGet, "/api/movies/"+itoa(id)+"/images")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPersonMovies(t *testing.T) {
	db, _ := seededDB(t)
	h := newTestHandler(db, nil)

	var movies []model.MovieRef
	decode(t, serve(h, http.MethodGet, "/api/directors/Michael%20Mann/movies"), &movies)
	require.Len(t, movies, 1)
	assert.Equal(t, "Heat", movies[0].Title)

	decode(t, serve(h, http.MethodGet, "/api/actors/Al%20Pacino/movies"), &movies)
	require.Len(t, movies, 1)

	var none []model.MovieRef
	env := decode(t, serve(h, http.MethodGet, "/api/actors/Nobody/movies"), &none)
	assert.True(t, env.Success)
	assert.Empty(t, none)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestSharedComputation_IgnoresCallerCancel(t *testing.T) {
	db, _ := seededDB(t)
	h := newTestHandler(db, nil)

	r := gin.New()
	r.GET("/api/stats", h.Report)
	r.GET("/api/directors/:name/movies", h.DirectorMovies)

	// 客户端已断开的请求不应让共享的统计计算失败
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, path := range []string{"/api/stats", "/api/directors/Michael%20Mann/movies"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	var report model.Report
	decode(t, serve(h, http.MethodGet, "/api/stats"), &report)
	assert.Equal(t, int64(1), report.General.MovieCount, "the cached result is complete")
}
