package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-besnyi/siteindex/internal/listing"
)

func TestSaveLinkRun(t *testing.T) {
	e := newEnv(t)
	started := testTime
	finished := testTime.Add(30 * time.Second)

	run := listing.LinkRun{
		ID: "run-1", StartedAt: started, FinishedAt: finished,
		Checked: 2, Broken: 1,
		Results: []listing.LinkResult{
			{ListingID: "a", URL: "https://smccd.edu/ok", Status: listing.LinkOK, HTTPStatus: 200, CheckedAt: started},
			{ListingID: "b", URL: "https://smccd.edu/gone", Status: listing.LinkBroken, HTTPStatus: 404, CheckedAt: started},
		},
	}

	e.mock.ExpectBegin()
	e.mock.ExpectExec("INSERT INTO link_runs (id,started_at,finished_at,checked,broken) VALUES ($1,$2,$3,$4,$5)").
		WithArgs("run-1", started, finished, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO link_results (run_id,listing_id,url,status,http_status,checked_at) VALUES ($1,$2,$3,$4,$5,$6)").
		WithArgs("run-1", "a", "https://smccd.edu/ok", listing.LinkOK, 200, started).
		WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectExec("INSERT INTO link_results (run_id,listing_id,url,status,http_status,checked_at) VALUES ($1,$2,$3,$4,$5,$6)").
		WithArgs("run-1", "b", "https://smccd.edu/gone", listing.LinkBroken, 404, started).
		WillReturnResult(sqlmock.NewResult(0, 1))
	e.mock.ExpectCommit()

	require.NoError(t, e.store.SaveLinkRun(context.Background(), run))
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestLatestLinkRun(t *testing.T) {
	e := newEnv(t)
	started := testTime

	e.mock.ExpectQuery("SELECT id, started_at, finished_at, checked, broken FROM link_runs ORDER BY started_at DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "finished_at", "checked", "broken"}).
			AddRow("run-1", started, started.Add(time.Minute), 1, 0))
	e.mock.ExpectQuery("SELECT listing_id, url, status, http_status, checked_at FROM link_results WHERE run_id = $1 ORDER BY url ASC").
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows([]string{"listing_id", "url", "status", "http_status", "checked_at"}).
			AddRow("a", "https://smccd.edu/ok", listing.LinkOK, 200, started))

	run, err := e.store.LatestLinkRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	require.Len(t, run.Results, 1)
	assert.Equal(t, listing.LinkOK, run.Results[0].Status)
	assert.NoError(t, e.mock.ExpectationsWereMet())
}

func TestLatestLinkRunEmpty(t *testing.T) {
	e := newEnv(t)
	e.mock.ExpectQuery("SELECT id, started_at, finished_at, checked, broken FROM link_runs ORDER BY started_at DESC LIMIT 1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "finished_at", "checked", "broken"}))

	_, err := e.store.LatestLinkRun(context.Background())
	assert.ErrorIs(t, err, ErrNoLinkRun)
}
