package app

import (
	"context"
	"path/filepath"
	"testing"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Database.DSN = "file:" + filepath.Join(t.TempDir(), "attendance.db")
	cfg.Database.LogLevel = "silent"
	return cfg
}

func TestBuildDatabaseWithWorkbookMirror(t *testing.T) {
	cfg := testConfig(t)
	cfg.Workbook.Path = filepath.Join(t.TempDir(), "attendance.xlsx")

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Store)
	require.NotNil(t, a.Workbook)
	assert.Nil(t, a.Slack)

	ctx := context.Background()
	for _, in := range []attendance.Inbound{
		{EventID: "1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Text: "#entry"},
		{EventID: "2", Date: "2024-05-01", Time: "17:30", EmployeeKey: "U1", Text: "#exit"},
	} {
		_, err := a.Service.Ingest(ctx, in)
		require.NoError(t, err)
	}
	a.Service.Wait()

	fromDB, err := a.Store.FindSummary(ctx, "2024-05-01", "U1")
	require.NoError(t, err)
	require.NotNil(t, fromDB)
	fromWorkbook, err := a.Workbook.FindSummary(ctx, "2024-05-01", "U1")
	require.NoError(t, err)
	require.NotNil(t, fromWorkbook)
	assert.Equal(t, 510, fromDB.TotalPresenceMinutes)
	assert.Equal(t, fromDB.TotalPresenceMinutes, fromWorkbook.TotalPresenceMinutes)

	mirrored, err := a.Workbook.QueryByDay(ctx, "2024-05-01", "U1")
	require.NoError(t, err)
	assert.Len(t, mirrored, 2)

	require.NoError(t, a.Close())
}

func TestBuildWorkbookOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Dialect = config.DialectWorkbook
	cfg.Workbook.Path = filepath.Join(t.TempDir(), "attendance.xlsx")

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	outcome, err := a.Service.Ingest(context.Background(), attendance.Inbound{EventID: "1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Text: "#entry"})
	require.NoError(t, err)
	assert.Equal(t, attendance.OutcomeRecorded, outcome)
}

func TestBuildWithSlack(t *testing.T) {
	cfg := testConfig(t)
	cfg.Slack.BotToken = "xoxb-test"

	a, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.NotNil(t, a.Slack)
}
