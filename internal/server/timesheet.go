package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/timesheet/internal/timecalc"
	timesheetdomain "github.com/smallbiznis/timesheet/internal/timesheet/domain"
)

type dayPayload struct {
	Date         string  `json:"date"`
	Start        string  `json:"start"`
	BreakHours   flexInt `json:"breakHours"`
	BreakMinutes flexInt `json:"breakMinutes"`
	Finish       string  `json:"finish"`
	Total        string  `json:"total"`
}

type saveTimesheetRequest struct {
	WeekStart   string                `json:"weekStart"`
	WeeklyTotal string                `json:"weeklyTotal"`
	Data        map[string]dayPayload `json:"data"`
}

type weekResponse struct {
	ID           string                `json:"id,omitempty"`
	WeekStart    string                `json:"weekStart"`
	WeeklyTotal  string                `json:"weeklyTotal"`
	PreviousWeek string                `json:"previousWeek,omitempty"`
	NextWeek     string                `json:"nextWeek,omitempty"`
	Data         map[string]dayPayload `json:"data"`
	UpdatedAt    *time.Time            `json:"updatedAt,omitempty"`
}

type savedTimesheetResponse struct {
	ID          string `json:"id"`
	WeekStart   string `json:"weekStart"`
	WeeklyTotal string `json:"weeklyTotal"`
}

// GetWeek returns a freshly initialized week for the Monday of ?date, or the
// current week when date is absent.
func (s *Server) GetWeek(c *gin.Context) {
	week, err := s.timesheetSvc.NewWeek(c.Request.Context(), c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := toWeekResponse(week)
	resp.PreviousWeek = timecalc.PreviousWeek(week.WeekStart).Format(timecalc.KeyLayout)
	resp.NextWeek = timecalc.NextWeek(week.WeekStart).Format(timecalc.KeyLayout)
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTimesheet(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	weekStart := strings.TrimSpace(c.Query("weekStart"))
	if weekStart == "" {
		AbortWithError(c, newValidationError("weekStart", "required", "weekStart is required"))
		return
	}
	c.Set("week_start", weekStart)

	record, err := s.timesheetSvc.Get(c.Request.Context(), user.ID, weekStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := toWeekResponse(record.Week)
	resp.ID = record.ID.String()
	updatedAt := record.UpdatedAt
	resp.UpdatedAt = &updatedAt
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// SaveTimesheet replaces the whole week. weeklyTotal and per-day totals in
// the body are ignored.
func (s *Server) SaveTimesheet(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req saveTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, timecalc.ErrInvalidBreak) {
			AbortWithError(c, err)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.WeekStart) == "" {
		AbortWithError(c, newValidationError("weekStart", "required", "weekStart is required"))
		return
	}
	if req.Data == nil {
		AbortWithError(c, newValidationError("data", "required", "data is required"))
		return
	}
	c.Set("week_start", strings.TrimSpace(req.WeekStart))

	days := make(map[string]timesheetdomain.DayInput, len(req.Data))
	for name, day := range req.Data {
		days[strings.ToLower(strings.TrimSpace(name))] = timesheetdomain.DayInput{
			Date:         day.Date,
			Start:        day.Start,
			Finish:       day.Finish,
			BreakHours:   int(day.BreakHours),
			BreakMinutes: int(day.BreakMinutes),
		}
	}

	record, err := s.timesheetSvc.Save(c.Request.Context(), timesheetdomain.SaveRequest{
		UserID:    user.ID,
		WeekStart: req.WeekStart,
		Days:      days,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": savedTimesheetResponse{
		ID:          record.ID.String(),
		WeekStart:   record.Week.Key(),
		WeeklyTotal: record.Week.WeeklyTotal,
	}})
}

func toWeekResponse(week timecalc.Week) weekResponse {
	data := make(map[string]dayPayload, timecalc.DaysPerWeek)
	for i, name := range timecalc.DayNames {
		day := week.Days[i]
		data[name] = dayPayload{
			Date:         day.Date,
			Start:        day.Start,
			BreakHours:   flexInt(day.Break.Hours),
			BreakMinutes: flexInt(day.Break.Minutes),
			Finish:       day.Finish,
			Total:        day.Total,
		}
	}
	return weekResponse{
		WeekStart:   week.WeekStart.Format(timecalc.KeyLayout),
		WeeklyTotal: week.WeeklyTotal,
		Data:        data,
	}
}
