package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/middleware"
	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	schedulesvc "github.com/Aerzsu/render-dental-clinic-sub000/internal/service/schedule"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/errors"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/httputil"
)

type Handler struct {
	service *schedulesvc.Service
	// bulkLimitDays caps a single bulk generation range.
	bulkLimitDays int
}

func NewHandler(service *schedulesvc.Service, bulkLimitDays int) *Handler {
	return &Handler{service: service, bulkLimitDays: bulkLimitDays}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	days := r.Group("/schedule-days")
	days.POST("", h.Create)
	days.GET("", h.ListRange)
	days.POST("/bulk", h.BulkGenerate)
	days.DELETE("", h.DeleteFrom)
	days.GET("/:date", h.GetByDate)
	days.PUT("/:date", h.Update)
	days.DELETE("/:date", h.Delete)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateScheduleDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	staffID, _ := middleware.StaffID(c)
	day, err := h.service.Create(c.Request.Context(), &req, &staffID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, day)
}

func (h *Handler) GetByDate(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}

	day, err := h.service.GetByDate(c.Request.Context(), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, day)
}

func (h *Handler) ListRange(c *gin.Context) {
	from, err := model.ParseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid from date"})
		return
	}
	to, err := model.ParseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid to date"})
		return
	}

	days, err := h.service.ListRange(c.Request.Context(), from, to)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) Update(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}

	var req model.UpdateScheduleDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	day, err := h.service.Update(c.Request.Context(), date, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, day)
}

func (h *Handler) Delete(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), date); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": date})
}

// DeleteFrom removes all schedule configuration from the given date on.
func (h *Handler) DeleteFrom(c *gin.Context) {
	from, err := model.ParseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid from date"})
		return
	}

	deleted, err := h.service.DeleteFrom(c.Request.Context(), from)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"deleted": deleted})
}

func (h *Handler) BulkGenerate(c *gin.Context) {
	var req model.BulkGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	if h.bulkLimitDays > 0 && req.StartDate.AddDays(h.bulkLimitDays).Before(req.EndDate) {
		httputil.RespondWithError(c, errors.Validation(
			"bulk generation is limited to %d days per request", h.bulkLimitDays))
		return
	}

	staffID, _ := middleware.StaffID(c)
	result, err := h.service.BulkGenerate(c.Request.Context(), &req, &staffID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, result)
}
