package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sekolahkita/portalguru/core"
	"github.com/sekolahkita/portalguru/core/attendance"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var attendanceOrderingFields = []string{"date", "status", "created_at", "updated_at"}

type attendanceApi struct {
	svc      attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/attendance", jwt, teacherMiddleware())
	ag.POST("", api.record)
	ag.GET("", api.query)
	ag.GET("/recap", api.recap)
}

// Handlers

func (api *attendanceApi) record(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data attendance.NewRecord
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRecord")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	rec, err := api.svc.Record(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	ownerID, err := scopedOwnerID(ctx)
	if err != nil {
		return err
	}

	var query AttendanceQueryRequest
	if err := ctx.Bind(&query); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Record{})
	}
	filter, err := query.Filter()
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, attendanceOrderingFields...)

	records, err := api.svc.Query(ctx.Request().Context(), ownerID, filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	if records == nil {
		records = []attendance.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) recap(ctx echo.Context) error {
	ownerID, err := scopedOwnerID(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	year, month := now.Year(), now.Month()
	if param := ctx.QueryParam("year"); param != "" {
		y, err := strconv.Atoi(param)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "year", Error: errInvalidYear})
		}
		year = y
	}
	if param := ctx.QueryParam("month"); param != "" {
		m, err := strconv.Atoi(param)
		if err != nil || m < 1 || m > 12 {
			return core.NewValidationError(nil, core.FieldError{Field: "month", Error: errInvalidMonth})
		}
		month = time.Month(m)
	}

	blob, err := api.svc.MonthlyRecap(ctx.Request().Context(), ownerID, year, month, ctx.QueryParam("class_id"))
	if err != nil {
		return errors.Wrap(err, "building recap")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", attendance.RecapFilename(year, month)))
	return ctx.Blob(http.StatusOK, xlsxContentType, blob)
}

// Requests

var (
	errInvalidDate  = "must be a date in YYYY-MM-DD format"
	errInvalidYear  = "must be a number"
	errInvalidMonth = "must be a number between 1 and 12"
)

type AttendanceQueryRequest struct {
	StudentID string `query:"student_id"`
	ClassID   string `query:"class_id"`
	From      string `query:"from"`
	To        string `query:"to"`
}

// Filter converts the request's from/to strings; echo binds time.Time from
// RFC3339 only, so plain dates are parsed here.
func (r *AttendanceQueryRequest) Filter() (attendance.QueryFilter, error) {
	filter := attendance.QueryFilter{StudentID: r.StudentID, ClassID: r.ClassID}
	if r.From != "" {
		from, err := time.Parse(core.DateFormat, r.From)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "from", Error: errInvalidDate})
		}
		filter.From = from
	}
	if r.To != "" {
		to, err := time.Parse(core.DateFormat, r.To)
		if err != nil {
			return filter, core.NewValidationError(nil, core.FieldError{Field: "to", Error: errInvalidDate})
		}
		filter.To = to
	}
	return filter, nil
}
