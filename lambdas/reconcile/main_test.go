package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"axiapac.com/attendance/attendance/app"
	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/config"
	"axiapac.com/attendance/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-05-02 01:30 in Brisbane
var now = time.Date(2024, 5, 1, 15, 30, 0, 0, time.UTC)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		dates     []string
		employees []string
		agent     bool
		wantErr   bool
	}{
		{name: "Empty", payload: `{}`, dates: []string{"2024-05-01"}},
		{name: "Direct", payload: `{"date":"2024-04-28","endDate":"2024-04-30","employees":["U1"]}`,
			dates: []string{"2024-04-28", "2024-04-29", "2024-04-30"}, employees: []string{"U1"}},
		{name: "Schedule", payload: `{"detail-type":"Scheduled Event","source":"aws.events","time":"2024-05-09T16:00:00Z","detail":{}}`,
			dates: []string{"2024-05-09"}},
		{name: "Agent", payload: `{"actionGroup":"attendance","function":"reconcile","parameters":[{"name":"date","value":"2024-05-03"},{"name":"employees","value":"U1,U2"}]}`,
			dates: []string{"2024-05-03"}, employees: []string{"U1", "U2"}, agent: true},
		{name: "Reversed", payload: `{"date":"2024-05-03","endDate":"2024-05-01"}`, wantErr: true},
		{name: "BadDate", payload: `{"date":"03/05/2024"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, dates, err := parseRequest([]byte(tt.payload), now, utils.BrisbaneTZ)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dates, dates)
			assert.Equal(t, tt.employees, req.Employees)
			assert.Equal(t, tt.agent, req.agent != nil)
		})
	}
}

func TestReconcile(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Dialect = config.DialectWorkbook
	cfg.Workbook.Path = filepath.Join(t.TempDir(), "attendance.xlsx")
	ctx := context.Background()

	a, err := app.Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	for _, in := range []attendance.Inbound{
		{EventID: "1", Date: "2024-05-01", Time: "09:00", EmployeeKey: "U1", Text: "#entry"},
		{EventID: "2", Date: "2024-05-01", Time: "09:30", EmployeeKey: "U2", Text: "#entry"},
	} {
		_, _, err := a.Service.Record(ctx, in)
		require.NoError(t, err)
	}

	resp, err := Reconcile(ctx, a, []string{"2024-05-01", "2024-05-02"}, nil)
	require.NoError(t, err)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, []string{"U1", "U2"}, resp.Days[0].Recomputed)
	assert.Empty(t, resp.Days[1].Recomputed)
	assert.Zero(t, resp.Failed)

	s, err := a.Summaries.FindSummary(ctx, "2024-05-01", "U2")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 1, s.EventCount)
}
