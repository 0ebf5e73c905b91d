package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/pevans/campus/newsfeed"
	"github.com/pevans/campus/paging"
	"github.com/pevans/campus/portalapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: point the CLI at a fake portal with an isolated HOME and cache
func setupTestEnv(t *testing.T) {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/scientific-Circles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []portalapi.ScienceClub{
			{ID: 1, Name: "Robotics", Tags: []paging.Tag{{ID: 1, Name: "tech"}}},
			{ID: 2, Name: "Choir", Tags: []paging.Tag{{ID: 2, Name: "art"}}},
		})
	})
	mux.HandleFunc("/maps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []portalapi.Building{{ID: 3, Name: "Main building", Code: "A-0", Address: "al. Mickiewicza 30"}})
	})
	mux.HandleFunc("/infos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []portalapi.Info{{ID: 8, Title: "Library", Description: "Opening hours"}})
	})
	mux.HandleFunc("/departments/4", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, portalapi.Department{ID: 4, Name: "Physics", Code: "WFiIS", Clubs: []portalapi.ScienceClub{{ID: 9, Name: "Astro"}}})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, portalapi.Version{ID: 1, Version: "1.0"})
	})
	mux.HandleFunc("/article.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<div class="news-single-text"><p>Hello</p><p><img src="/a.png"></p></div>`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CAMPUS_API_BASE_URL", server.URL)
	t.Setenv("CAMPUS_SCRAPE_BASE_URL", server.URL)
	t.Setenv("CAMPUS_CACHE_DSN", filepath.Join(home, "cache.db"))
	t.Setenv("CAMPUS_LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListCommand_JSONWithTag(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "list", "clubs", "--tag", "tech", "-o", "json")
	require.NoError(t, err)

	var view struct {
		Items []portalapi.ScienceClub `json:"items"`
		State string                  `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Robotics", view.Items[0].Name)
	assert.Equal(t, "exhausted", view.State)
}

func TestListCommand_Table(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "list", "clubs", "--search", "choir")
	require.NoError(t, err)
	assert.Contains(t, out, "Choir")
	assert.NotContains(t, out, "Robotics")
	assert.Contains(t, out, "Showing 1 of 2")
}

func TestListCommand_UnknownFeature(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "list", "canteens")
	assert.ErrorContains(t, err, "unknown feature")
}

func TestDepartmentCommand(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "department", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Physics (WFiIS)")
	assert.Contains(t, out, "Astro")

	_, err = runCLI(t, "department", "x")
	assert.ErrorContains(t, err, "invalid department ID")
}

// TestItemCommands verifies club, building and info lookups by ID
func TestItemCommands(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "club", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Robotics")
	assert.Contains(t, out, "Tags: tech")

	out, err = runCLI(t, "building", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Main building (A-0)")
	assert.Contains(t, out, "Address: al. Mickiewicza 30")

	out, err = runCLI(t, "info", "8", "-o", "compact")
	require.NoError(t, err)
	assert.Equal(t, "Library\n", out)

	_, err = runCLI(t, "club", "99")
	assert.ErrorContains(t, err, "unknown item")

	_, err = runCLI(t, "building", "-1")
	assert.Error(t, err)
}

func TestNewsShowCommand(t *testing.T) {
	setupTestEnv(t)
	url := "/article.html"

	out, err := runCLI(t, "news", "show", url, "-o", "json")
	require.NoError(t, err)

	var components []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &components))
	require.Len(t, components, 2)
	assert.Equal(t, string(newsfeed.KindText), components[0]["kind"])
	assert.Equal(t, "Hello", components[0]["content"])
	assert.Equal(t, string(newsfeed.KindImage), components[1]["kind"])
}

func TestNewsCommand_RejectsPageCount(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "news", "list", "--pages", "500")
	assert.ErrorContains(t, err, "scrape.pages")
}

// TestVersionSyncAndCacheClear verifies the version is cached and cleared
func TestVersionSyncAndCacheClear(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "version", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "changed")

	out, err = runCLI(t, "version", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, err = runCLI(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cache entries.")
}

func TestInvalidOutputFormat(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "notices", "-o", "xml")
	assert.ErrorContains(t, err, "invalid output format")
}
