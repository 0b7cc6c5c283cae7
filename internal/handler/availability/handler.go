package availability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Aerzsu/render-dental-clinic-sub000/internal/model"
	availsvc "github.com/Aerzsu/render-dental-clinic-sub000/internal/service/availability"
	"github.com/Aerzsu/render-dental-clinic-sub000/pkg/httputil"
)

const (
	defaultDurationMinutes = 30
	defaultDaysAhead       = 14
	cacheTTL               = 30 * time.Second
)

// Handler serves the read side of slot availability. List responses are
// cached briefly; correctness-critical checks always hit the engine because
// the booking transaction re-validates anyway.
type Handler struct {
	service *availsvc.Service
	cache   *gocache.Cache
}

func NewHandler(service *availsvc.Service) *Handler {
	return &Handler{
		service: service,
		cache:   gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// RegisterRoutes installs the public availability endpoints.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	avail := r.Group("/availability")
	avail.GET("/dates", h.NextDates)
	avail.GET("/check", h.Check)
	avail.GET("/range", h.Range)
	avail.GET("/:date/slots", h.Slots)
}

// RegisterAdminRoutes installs the staff-facing views, which can exclude
// pending holds to show true remaining capacity.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/days/:date/summary", h.DaySummary)
	r.GET("/days/:date/slots", h.AdminSlots)
}

func (h *Handler) NextDates(c *gin.Context) {
	duration := queryInt(c, "duration", defaultDurationMinutes)
	days := queryInt(c, "days", defaultDaysAhead)

	key := fmt.Sprintf("dates:%d:%d", days, duration)
	if cached, ok := h.cache.Get(key); ok {
		httputil.RespondWithSuccess(c, cached)
		return
	}

	dates, err := h.service.NextAvailableDates(c.Request.Context(), days, duration)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.cache.Set(key, dates, cacheTTL)
	httputil.RespondWithSuccess(c, dates)
}

func (h *Handler) Slots(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}
	duration := queryInt(c, "duration", defaultDurationMinutes)

	key := fmt.Sprintf("slots:%s:%d", date, duration)
	if cached, ok := h.cache.Get(key); ok {
		httputil.RespondWithSuccess(c, cached)
		return
	}

	starts, err := h.service.AvailableStarts(c.Request.Context(), date, duration, true)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.cache.Set(key, starts, cacheTTL)
	httputil.RespondWithSuccess(c, starts)
}

func (h *Handler) AdminSlots(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}
	duration := queryInt(c, "duration", defaultDurationMinutes)
	includePending := c.DefaultQuery("include_pending", "false") == "true"

	starts, err := h.service.AvailableStarts(c.Request.Context(), date, duration, includePending)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, starts)
}

func (h *Handler) Check(c *gin.Context) {
	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}
	start, err := model.ParseTimeOfDay(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid start time"})
		return
	}
	duration := queryInt(c, "duration", defaultDurationMinutes)

	available, message, err := h.service.CheckTimeslot(c.Request.Context(), date, start, duration, nil)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{
		"available": available,
		"message":   message,
	})
}

func (h *Handler) Range(c *gin.Context) {
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
	duration := queryInt(c, "duration", defaultDurationMinutes)

	days, err := h.service.RangeAvailability(c.Request.Context(), from, to, duration, true)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

func (h *Handler) DaySummary(c *gin.Context) {
	date, err := model.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid date"})
		return
	}

	summary, err := h.service.DaySummary(c.Request.Context(), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, summary)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
