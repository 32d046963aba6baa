package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	"axiapac.com/attendance/utils"
	web "axiapac.com/attendance/web/common"
	"github.com/gin-gonic/gin"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

const DefaultAckTimeout = 2 * time.Second

type SlackEndpoint struct {
	svc           *attendance.Service
	signingSecret string
	location      *time.Location
	ackTimeout    time.Duration
	log           *slog.Logger
}

func RegisterSlack(r *gin.Engine, opts Options) {
	endpoint := &SlackEndpoint{
		svc:           opts.Service,
		signingSecret: opts.SlackSigningSecret,
		location:      opts.Location,
		ackTimeout:    opts.AckTimeout,
		log:           opts.Logger,
	}
	if endpoint.location == nil {
		endpoint.location = utils.BrisbaneTZ
	}
	if endpoint.ackTimeout <= 0 {
		endpoint.ackTimeout = DefaultAckTimeout
	}
	r.POST("/slack/events", endpoint.Events)
}

// Events answers the Slack Events API. Once the signature checks out the
// answer is 200 unless the event could not be stored, so Slack only retries
// deliveries that were lost.
func (ep *SlackEndpoint) Events(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Error reading body"))
		return
	}

	sv, err := slack.NewSecretsVerifier(c.Request.Header, ep.signingSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("invalid signature"))
		return
	}
	if _, err := sv.Write(body); err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	if err := sv.Ensure(); err != nil {
		c.JSON(http.StatusUnauthorized, web.NewErrorResponse("invalid signature"))
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var r slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &r); err != nil {
			c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
			return
		}
		c.String(http.StatusOK, r.Challenge)

	case slackevents.CallbackEvent:
		in, ok := ep.inbound(event, body)
		if !ok {
			c.JSON(http.StatusOK, web.NewSuccessResponse(gin.H{"outcome": attendance.OutcomeIgnored}))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), ep.ackTimeout)
		defer cancel()

		outcome, err := ep.svc.Ingest(ctx, in)
		if err != nil {
			ep.log.Error("slack event not stored", "eventId", in.EventID, "retry", c.GetHeader("X-Slack-Retry-Num"), "error", err)
			if errors.Is(err, attendance.ErrStoreUnavailable) {
				c.JSON(http.StatusServiceUnavailable, web.NewErrorResponse(err.Error()))
				return
			}
		}
		c.JSON(http.StatusOK, web.NewSuccessResponse(gin.H{"outcome": outcome}))

	default:
		c.Status(http.StatusOK)
	}
}

type slackMessage struct {
	user, text, ts, channel string
}

// inbound maps a message or app_mention callback. Bot messages and message
// subtypes (edits, joins, deletions) are ignored. The event id is the
// message identity channel:ts, which stays the same across Slack retries
// and across the two event types for one message.
func (ep *SlackEndpoint) inbound(event slackevents.EventsAPIEvent, body []byte) (attendance.Inbound, bool) {
	var msg slackMessage
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || ev.SubType != "" {
			return attendance.Inbound{}, false
		}
		msg = slackMessage{user: ev.User, text: ev.Text, ts: ev.TimeStamp, channel: ev.Channel}
	case *slackevents.AppMentionEvent:
		if ev.BotID != "" {
			return attendance.Inbound{}, false
		}
		msg = slackMessage{user: ev.User, text: ev.Text, ts: ev.TimeStamp, channel: ev.Channel}
	default:
		return attendance.Inbound{}, false
	}
	if msg.user == "" {
		return attendance.Inbound{}, false
	}

	at, err := utils.ParseEpoch(msg.ts)
	if err != nil {
		ep.log.Warn("slack message without usable ts", "ts", msg.ts, "error", err)
		return attendance.Inbound{}, false
	}
	at = at.In(ep.location)

	return attendance.Inbound{
		EventID:     msg.channel + ":" + msg.ts,
		Date:        at.Format(utils.DateLayout),
		Time:        at.Format("15:04:05"),
		EmployeeKey: msg.user,
		Text:        msg.text,
		Source:      model.SourceSlack,
		Channel:     msg.channel,
		Reference:   msg.ts,
		Payload:     body,
	}, true
}
