package main

import (
	"encoding/json"
	"fmt"
	"time"

	"axiapac.com/attendance/lambdas/common"
	"axiapac.com/attendance/utils"
	"github.com/aws/aws-lambda-go/events"
)

// ReconcileEvent is the direct invocation payload. Date defaults to the day
// before the invocation in the configured timezone.
type ReconcileEvent struct {
	Date      string   `json:"date"`
	EndDate   string   `json:"endDate"`
	Employees []string `json:"employees"`
}

type request struct {
	ReconcileEvent
	agent *common.AgentEvent
}

// parseRequest accepts a direct payload, an EventBridge schedule or a
// Bedrock agent call and resolves the dates to reconcile.
func parseRequest(payload []byte, now time.Time, loc *time.Location) (*request, []string, error) {
	req := &request{}

	var agent common.AgentEvent
	_ = json.Unmarshal(payload, &agent)

	var scheduled events.CloudWatchEvent
	_ = json.Unmarshal(payload, &scheduled)

	switch {
	case agent.IsAgentCall():
		req.agent = &agent
		req.Date = agent.Parameter("date")
		req.EndDate = agent.Parameter("endDate")
		req.Employees = agent.ListParameter("employees")
	case scheduled.DetailType != "":
		if !scheduled.Time.IsZero() {
			now = scheduled.Time
		}
		if len(scheduled.Detail) > 0 {
			if err := json.Unmarshal(scheduled.Detail, &req.ReconcileEvent); err != nil {
				return nil, nil, fmt.Errorf("failed to unmarshal schedule detail: %w", err)
			}
		}
	default:
		if err := json.Unmarshal(payload, &req.ReconcileEvent); err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal reconcile event: %w", err)
		}
	}

	if req.Date == "" {
		req.Date = now.In(loc).AddDate(0, 0, -1).Format(utils.DateLayout)
	}
	if req.EndDate == "" {
		req.EndDate = req.Date
	}

	start, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, nil, err
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return nil, nil, err
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("endDate %s is before date %s", req.EndDate, req.Date)
	}
	return req, utils.DateRange(start, end), nil
}
