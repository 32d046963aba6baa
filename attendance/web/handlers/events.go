package handlers

import (
	"fmt"
	"net/http"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/model"
	web "axiapac.com/attendance/web/common"
	"github.com/gin-gonic/gin"
)

type EventRequest struct {
	EventID      string `json:"eventId" binding:"required,max=128"`
	Date         string `json:"date" binding:"required,datetime=2006-01-02"`
	Time         string `json:"time" binding:"required"`
	EmployeeKey  string `json:"employeeKey" binding:"required,max=64"`
	EmployeeName string `json:"employeeName" binding:"max=255"`
	// Keyword accepts the enum name or the hashtag; Text is classified when
	// it is absent.
	Keyword string `json:"keyword" binding:"required_without=Text"`
	Text    string `json:"text"`
}

type EventResponse struct {
	Outcome attendance.Outcome `json:"outcome"`
	Event   *model.Event       `json:"event,omitempty"`
}

func (ep *Endpoint) CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	if _, err := model.ParseClock(req.Time); err != nil {
		ep.fail(c, fmt.Errorf("%w: %w", attendance.ErrMalformedTime, err))
		return
	}

	in := attendance.Inbound{
		EventID:      req.EventID,
		Date:         req.Date,
		Time:         req.Time,
		EmployeeKey:  req.EmployeeKey,
		EmployeeName: req.EmployeeName,
		Text:         req.Text,
		Source:       model.SourceAPI,
	}
	if req.Keyword != "" {
		keyword, err := attendance.ParseKeyword(req.Keyword)
		if err != nil {
			ep.fail(c, err)
			return
		}
		in.Keyword = keyword
	}

	outcome, event, err := ep.svc.Record(c.Request.Context(), in)
	if err != nil {
		ep.fail(c, err)
		return
	}
	status := http.StatusOK
	if outcome == attendance.OutcomeRecorded {
		ep.svc.Schedule(event)
		status = http.StatusAccepted
	}
	c.JSON(status, web.NewSuccessResponse(EventResponse{Outcome: outcome, Event: event}))
}

type EventQuery struct {
	Date     string `form:"date" binding:"required,datetime=2006-01-02"`
	Employee string `form:"employee" binding:"required"`
}

func (ep *Endpoint) ListEvents(c *gin.Context) {
	var query EventQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	events, err := ep.events.QueryByDay(c.Request.Context(), query.Date, query.Employee)
	if err != nil {
		ep.fail(c, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(events))
}
