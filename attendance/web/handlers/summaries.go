package handlers

import (
	"net/http"
	"strconv"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/utils"
	web "axiapac.com/attendance/web/common"
	"github.com/gin-gonic/gin"
)

func (ep *Endpoint) GetSummary(c *gin.Context) {
	date := c.Param("date")
	if _, err := utils.ParseDate(date); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(err.Error()))
		return
	}

	summary, err := ep.summaries.FindSummary(c.Request.Context(), date, c.Param("employee"))
	if err != nil {
		ep.fail(c, err)
		return
	}
	if summary == nil {
		c.JSON(http.StatusNotFound, web.NewErrorResponse("Summary not found"))
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(summary))
}

type SearchParams struct {
	StartDate string   `json:"startDate" binding:"required,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" binding:"required,datetime=2006-01-02"`
	Employees []string `json:"employees"`
}

func (ep *Endpoint) SearchSummaries(c *gin.Context) {
	var params SearchParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}
	if params.EndDate < params.StartDate {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse("Field 'endDate' must not be before 'startDate'"))
		return
	}

	// get limit, offset from query params
	limit := 1000
	offset := 0
	if val, err := strconv.Atoi(c.Query("limit")); err == nil && val > 0 {
		limit = val
	}
	if val, err := strconv.Atoi(c.Query("offset")); err == nil && val >= 0 {
		offset = val
	}

	results, total, err := ep.summaries.SearchSummaries(c.Request.Context(), attendance.SummaryQuery{
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
		Employees: params.Employees,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		ep.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSearchResponse(results, total, limit, offset))
}

type RecomputeParams struct {
	Date      string   `json:"date" binding:"required,datetime=2006-01-02"`
	Employees []string `json:"employees"`
}

// Recompute rebuilds summaries synchronously. Per employee failures are
// reported in the result, not as an error status.
func (ep *Endpoint) Recompute(c *gin.Context) {
	var params RecomputeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, web.NewErrorResponse(web.FormatBindingError(err)))
		return
	}

	result, err := ep.svc.ReconcileDay(c.Request.Context(), params.Date, params.Employees)
	if err != nil {
		ep.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(result))
}
