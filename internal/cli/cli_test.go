package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/moovie-wrapped/internal/model"
	"github.com/user/moovie-wrapped/internal/repository"
)

const ratingsCSV = `Date,Name,Year,Letterboxd URI,Rating
2024-01-01,Heat,1995,https://boxd.it/1,4.5
2024-01-02,Collateral,2004,https://boxd.it/2,4
2024-01-03,Missing Movie,2010,https://boxd.it/3,3
2024-01-04,Broken Row
`

const diaryCSV = `Date,Name,Year,Letterboxd URI,Rating,Rewatch,Tags,Watched Date
2024-02-01,Heat,1995,https://boxd.it/1,4.5,,,2024-01-31
2024-02-02,Heat,1995,https://boxd.it/1,4.5,Yes,,2024-02-01
2024-02-03,Collateral,2004,https://boxd.it/2,4,,,2024-02-02
2024-02-04,Not In Library,2001,https://boxd.it/9,3,,,2024-02-03
`

func fakeTMDB(t *testing.T) *httptest.Server {
	t.Helper()
	movies := map[string]string{
		"Heat":       `{"id":949,"title":"Heat","release_date":"1995-12-15"}`,
		"Collateral": `{"id":1538,"title":"Collateral","release_date":"2004-08-05"}`,
	}
	details := map[string]string{
		"/movie/949": `{"id":949,"title":"Heat","release_date":"1995-12-15","runtime":170,
			"credits":{"crew":[{"job":"Director","name":"Michael Mann"}],"cast":[{"name":"Al Pacino"},{"name":"Robert De Niro"}]}}`,
		"/movie/1538": `{"id":1538,"title":"Collateral","release_date":"2004-08-05","runtime":120,
			"credits":{"crew":[{"job":"Director","name":"Michael Mann"}],"cast":[{"name":"Tom Cruise"},{"name":"Jamie Foxx"}]}}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/search/movie" {
			if m, ok := movies[r.URL.Query().Get("query")]; ok {
				w.Write([]byte(`{"results":[` + m + `]}`))
				return
			}
			w.Write([]byte(`{"results":[]}`))
			return
		}
		if body, ok := details[r.URL.Path]; ok {
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type env struct {
	dir     string
	ratings string
	diary   string
	db      string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		ratings: filepath.Join(dir, "ratings.csv"),
		diary:   filepath.Join(dir, "diary.csv"),
		db:      filepath.Join(dir, "data", "movies.db"),
	}
	require.NoError(t, os.WriteFile(e.ratings, []byte(ratingsCSV), 0o644))
	require.NoError(t, os.WriteFile(e.diary, []byte(diaryCSV), 0o644))

	srv := fakeTMDB(t)
	t.Setenv("TMDB_BASE_URL", srv.URL)
	t.Setenv("TMDB_ACCESS_TOKEN", "test-token")
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("TMDB_CREDENTIALS_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", e.db)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("APP_ENV", "test")
	return e
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand_Flags(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)

	for _, name := range []string{"db-driver", "db", "log-level", "log-format"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, "--%s should be registered", name)
		assert.Equal(t, "string", flag.Value.Type())
	}

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"build", "diary-merge", "stats", "serve"})
}

func TestBuildDiaryStats_EndToEnd(t *testing.T) {
	e := setupEnv(t)

	out, err := run(t, "build", "--ratings", e.ratings)
	require.NoError(t, err)
	assert.Contains(t, out, "processed 4 rows: 2 imported, 2 skipped (1 malformed, 1 not found)")

	out, err = run(t, "diary-merge", "--diary", e.diary, "--show-unmatched")
	require.NoError(t, err)
	assert.Contains(t, out, "3 inserted")
	assert.Contains(t, out, "unmatched: Not In Library")

	out, err = run(t, "stats", "--json")
	require.NoError(t, err)
	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(2), report.General.MovieCount)
	assert.Equal(t, int64(1), report.General.DirectorCount)
	assert.Equal(t, int64(170*2+120), report.General.Durations.Watched.Minutes)
	require.Len(t, report.General.Monthly, 2)
	assert.Equal(t, int64(1), report.General.Monthly[0].Watches)
	assert.Equal(t, int64(2), report.General.Monthly[1].Watches)
	require.Len(t, report.Rankings.Movies.TopWatched, 2)
	assert.Equal(t, "Heat", report.Rankings.Movies.TopWatched[0].Title)

	out, err = run(t, "stats", "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Michael Mann")
	assert.Contains(t, out, "Robert De Niro")
}

func TestBuild_Twice(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, "build", "--ratings", e.ratings)
	require.NoError(t, err)
	_, err = run(t, "diary-merge", "--diary", e.diary)
	require.NoError(t, err)

	// 重新 build 会清空日记
	_, err = run(t, "build", "--ratings", e.ratings)
	require.NoError(t, err)

	out, err := run(t, "stats", "--json")
	require.NoError(t, err)
	var report model.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(2), report.General.MovieCount)
	assert.Empty(t, report.General.Monthly)
}

func TestDiaryMerge_RequiresBuild(t *testing.T) {
	e := setupEnv(t)

	_, err := run(t, "diary-merge", "--diary", e.diary)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNoDatabase)
}

func TestStats_RequiresBuild(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "stats")
	assert.ErrorIs(t, err, repository.ErrNoDatabase)
}

func TestBuild_RequiresCredentials(t *testing.T) {
	e := setupEnv(t)
	t.Setenv("TMDB_ACCESS_TOKEN", "")

	_, err := run(t, "build", "--ratings", e.ratings)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "TMDB"))
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "stats", "--db-driver", "mysql")
	assert.Error(t, err)
}
