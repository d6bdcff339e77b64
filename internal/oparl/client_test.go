package oparl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratskal/internal/httpcache"
	"ratskal/internal/model"
)

func TestMeetingsValidatesRecords(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/meetings", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[
			{"id":"m-1","name":"Ratssitzung","start":"2025-03-05T17:00:00+01:00","meeting_state":"invited","cancelled":false,"organizationName":"Rat"},
			{"id":42,"name":" ","start":"2025-03-06","meeting_state":"CANCELLED"},
			{"id":null,"name":"ohne id","start":"2025-03-07"},
			{"id":"m-3","name":"Bauausschuss","start":"","meeting_state":"weird"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "body-1", httpcache.NewFetcher(t.TempDir(), srv.Client()))
	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC)

	ms, err := c.Meetings(context.Background(), from, to)
	require.NoError(t, err)
	assert.Equal(t, "body=body-1&end=2025-03-31&start=2025-03-01", gotQuery)

	require.Len(t, ms, 3)
	assert.Equal(t, model.Meeting{
		ID:               "m-1",
		Name:             "Ratssitzung",
		Start:            "2025-03-05T17:00:00+01:00",
		State:            model.StateInvited,
		OrganizationName: "Rat",
	}, ms[0])

	assert.Equal(t, "42", ms[1].ID)
	assert.Equal(t, "Sitzung", ms[1].Name)
	assert.Equal(t, model.StateCancelled, ms[1].State)
	assert.True(t, ms[1].Cancelled)

	// Unparseable start survives ingestion; bucketing decides later.
	assert.Equal(t, "m-3", ms[2].ID)
	assert.Equal(t, "", ms[2].Start)
	assert.Equal(t, model.StateScheduled, ms[2].State)
}

func TestMeetingsFollowsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"data":[{"id":"b","start":"2025-03-02"}]}`)
			return
		}
		fmt.Fprintf(w, `{"data":[{"id":"a","start":"2025-03-01"}],"links":{"next":%q}}`, srv.URL+"/api/meetings?page=2")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", httpcache.NewFetcher(t.TempDir(), srv.Client()))
	ms, err := c.Meetings(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "a", ms[0].ID)
	assert.Equal(t, "b", ms[1].ID)
}

func TestMeetingsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", httpcache.NewFetcher(t.TempDir(), srv.Client()))
	_, err := c.Meetings(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestMeetingsEmptyBaseURL(t *testing.T) {
	c := NewClient("", "", httpcache.NewFetcher(t.TempDir(), nil))
	_, err := c.Meetings(context.Background(), time.Now(), time.Now())
	assert.Error(t, err)
}
