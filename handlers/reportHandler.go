package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huastex/huastex_backend/models"
	"github.com/huastex/huastex_backend/models/reports"
	"github.com/huastex/huastex_backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) getDailyAccounting() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "getDailyAccounting")
		defer span.End()

		date, ok := queryDate(c, c.Query("date"))
		if !ok {
			return
		}
		row, err := models.GetDailyAccounting(ctx, date, c.Query("location"))
		if err != nil {
			respondError(c, span, "getDailyAccounting", c.Request.URL.RawQuery, err, true)
			return
		}
		if row == nil {
			respondError(c, span, "getDailyAccounting", c.Request.URL.RawQuery, utils.ErrorRecordNotFound, false)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (h *Handler) upsertDailyAccounting() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "upsertDailyAccounting")
		defer span.End()

		date, ok := queryDate(c, c.Param("date"))
		if !ok {
			return
		}
		var input models.NewDailyAccounting
		if !bindJSON(c, &input) {
			return
		}
		row, err := models.UpsertDailyAccounting(ctx, date, &input)
		if err != nil {
			respondError(c, span, "upsertDailyAccounting", input, err, true)
			return
		}
		c.JSON(http.StatusOK, row)
	}
}

func (h *Handler) dailyReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "dailyReport")
		defer span.End()

		date, ok := queryDate(c, c.Query("date"))
		if !ok {
			return
		}
		report, err := reports.GetDailyCashReport(ctx, date, c.Query("location"))
		if err != nil {
			respondError(c, span, "dailyReport", c.Request.URL.RawQuery, err, true)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func (h *Handler) exportDailyReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := h.span(c, "exportDailyReport")
		defer span.End()

		date, ok := queryDate(c, c.Query("date"))
		if !ok {
			return
		}
		report, err := reports.GetDailyCashReport(ctx, date, c.Query("location"))
		if err != nil {
			respondError(c, span, "exportDailyReport", c.Request.URL.RawQuery, err, true)
			return
		}
		var buf bytes.Buffer
		if err := reports.ExportDailyCashReport(report, &buf); err != nil {
			respondError(c, span, "exportDailyReport", c.Request.URL.RawQuery, err, false)
			return
		}
		filename := fmt.Sprintf("corte-%s-%s.xlsx", report.Location, date.Format("2006-01-02"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
	}
}
