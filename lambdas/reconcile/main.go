package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"axiapac.com/attendance/attendance/app"
	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/config"
	"axiapac.com/attendance/infrastructure/logging"
	"github.com/aws/aws-lambda-go/lambda"
)

type ReconcileResponse struct {
	Days   []*attendance.ReconcileResult `json:"days"`
	Failed int                           `json:"failed"`
}

func Reconcile(ctx context.Context, a *app.App, dates, employees []string) (*ReconcileResponse, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("no dates to reconcile")
	}
	resp := &ReconcileResponse{}
	for _, date := range dates {
		res, err := a.Service.ReconcileDay(ctx, date, employees)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile %s: %w", date, err)
		}
		resp.Failed += len(res.Failed)
		resp.Days = append(resp.Days, res)
		a.Logger.Info("reconciled day", "date", date, "recomputed", len(res.Recomputed), "failed", len(res.Failed))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Nightly reconcile %s..%s:", dates[0], dates[len(dates)-1])
	for _, day := range resp.Days {
		fmt.Fprintf(&b, " %s=%d", day.Date, len(day.Recomputed))
	}
	if resp.Failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", resp.Failed)
	}
	a.Report(ctx, b.String())
	return resp, nil
}

func HandleRequest(ctx context.Context, payload json.RawMessage) (any, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))
	logger.Info("reconcile invoked", "payload", string(payload))

	req, dates, err := parseRequest(payload, time.Now(), cfg.Location())
	if err != nil {
		return nil, err
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	resp, err := Reconcile(ctx, a, dates, req.Employees)
	if err != nil {
		if a.Slack != nil {
			_ = a.Slack.Error(ctx, err.Error())
		}
		return nil, err
	}

	if req.agent != nil {
		return req.agent.Respond(resp)
	}
	return resp, nil
}

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		lambda.Start(HandleRequest)
		return
	}

	payload := json.RawMessage("{}")
	if len(os.Args) > 1 {
		payload = json.RawMessage(os.Args[1])
	}
	out, err := HandleRequest(context.Background(), payload)
	if err != nil {
		slog.Error("reconcile failed", "error", err)
		os.Exit(1)
	}
	resJSON, _ := json.MarshalIndent(out, "", "  ")
	fmt.Printf("%s\n", resJSON)
}
