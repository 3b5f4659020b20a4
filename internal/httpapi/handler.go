package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/rotrade-sync/internal/api"
	apperr "github.com/oggyb/rotrade-sync/internal/errors"
	"github.com/oggyb/rotrade-sync/internal/model"
)

// Handler serves the action-dispatched endpoint on top of an api.API.
type Handler struct {
	api    api.API
	routes map[string]gin.HandlerFunc
}

func NewHandler(a api.API) *Handler {
	h := &Handler{api: a}
	h.routes = map[string]gin.HandlerFunc{
		route(http.MethodPost, api.ActionRegister):  h.register,
		route(http.MethodPost, api.ActionLogin):     h.login,
		route(http.MethodGet, api.ActionListings):   h.listListings,
		route(http.MethodPost, api.ActionListing):   h.createListing,
		route(http.MethodDelete, api.ActionListing): h.deleteListing,
		route(http.MethodGet, api.ActionMessages):   h.listMessages,
		route(http.MethodPost, api.ActionMessage):   h.sendMessage,
		route(http.MethodDelete, api.ActionMessage): h.deleteMessage,
		route(http.MethodGet, api.ActionUsers):      h.listUsers,
		route(http.MethodPost, api.ActionReport):    h.createReport,
		route(http.MethodDelete, api.ActionReport):  h.dismissReport,
		route(http.MethodGet, api.ActionReports):    h.listReports,
		route(http.MethodDelete, api.ActionUser):    h.deleteUser,
		route(http.MethodPost, api.ActionReview):    h.createReview,
		route(http.MethodGet, api.ActionReviews):    h.listReviews,
	}
	return h
}

func route(method, action string) string { return method + " " + action }

// RegisterRoutes mounts the endpoint on path.
func (h *Handler) RegisterRoutes(r gin.IRoutes, path string) {
	r.GET(path, h.Dispatch)
	r.POST(path, h.Dispatch)
	r.DELETE(path, h.Dispatch)
}

// Dispatch picks the handler from the method and the action query
// parameter.
func (h *Handler) Dispatch(c *gin.Context) {
	action := c.Query("action")
	if fn, ok := h.routes[route(c.Request.Method, action)]; ok {
		fn(c)
		return
	}
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		if _, ok := h.routes[route(m, action)]; ok {
			c.AbortWithStatusJSON(http.StatusMethodNotAllowed, api.ErrorBody{Error: "method not allowed for action " + action})
			return
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, api.ErrorBody{Error: "unknown action " + strconv.Quote(action)})
}

// fail writes err with the status the error taxonomy assigns to it.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, api.ErrorBody{Error: msg})
}

// respond writes v, or 404 when the operation found no target.
func respond[T any](c *gin.Context, v *T, err error, convert func(T) any) {
	if err != nil {
		fail(c, err)
		return
	}
	if v == nil {
		fail(c, apperr.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, convert(*v))
}

func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, apperr.Validation("invalid request body"))
		return false
	}
	return true
}

// queryID reads an integer query parameter; missing yields 0.
func queryID(c *gin.Context, name string, required bool) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		if required {
			fail(c, apperr.InvalidField(name, "required"))
			return 0, false
		}
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fail(c, apperr.InvalidField(name, "must be a number"))
		return 0, false
	}
	return id, true
}

func (h *Handler) register(c *gin.Context) {
	var in model.Credentials
	if !bind(c, &in) {
		return
	}
	u, err := h.api.Register(c.Request.Context(), in)
	respond(c, u, err, func(u model.User) any { return api.FromUser(u) })
}

func (h *Handler) login(c *gin.Context) {
	var in model.Credentials
	if !bind(c, &in) {
		return
	}
	u, err := h.api.Login(c.Request.Context(), in)
	respond(c, u, err, func(u model.User) any { return api.FromUser(u) })
}

func (h *Handler) listListings(c *gin.Context) {
	listings, err := h.api.GetListings(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Convert(listings, api.FromListing))
}

func (h *Handler) createListing(c *gin.Context) {
	var in model.ListingInput
	if !bind(c, &in) {
		return
	}
	l, err := h.api.CreateListing(c.Request.Context(), in)
	respond(c, l, err, func(l model.Listing) any { return api.FromListing(l) })
}

func (h *Handler) deleteListing(c *gin.Context) {
	id, ok := queryID(c, "id", true)
	if !ok {
		return
	}
	if err := h.api.DeleteListing(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) listMessages(c *gin.Context) {
	userID, ok := queryID(c, "userId", false)
	if !ok {
		return
	}
	msgs, err := h.api.GetMessages(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Convert(msgs, api.FromMessage))
}

func (h *Handler) sendMessage(c *gin.Context) {
	var in model.MessageInput
	if !bind(c, &in) {
		return
	}
	m, err := h.api.SendMessage(c.Request.Context(), in)
	respond(c, m, err, func(m model.Message) any { return api.FromMessage(m) })
}

func (h *Handler) deleteMessage(c *gin.Context) {
	id, ok := queryID(c, "id", true)
	if !ok {
		return
	}
	if err := h.api.DeleteMessage(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.api.GetUsers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Convert(users, api.FromUser))
}

func (h *Handler) createReport(c *gin.Context) {
	var in model.ReportInput
	if !bind(c, &in) {
		return
	}
	r, err := h.api.CreateReport(c.Request.Context(), in)
	respond(c, r, err, func(r model.Report) any { return api.FromReport(r) })
}

func (h *Handler) listReports(c *gin.Context) {
	reports, err := h.api.GetReports(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Convert(reports, api.FromReport))
}

func (h *Handler) dismissReport(c *gin.Context) {
	actorID, id, ok := moderationTarget(c)
	if !ok {
		return
	}
	if err := h.api.DismissReport(c.Request.Context(), actorID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) deleteUser(c *gin.Context) {
	actorID, id, ok := moderationTarget(c)
	if !ok {
		return
	}
	if err := h.api.DeleteAccount(c.Request.Context(), actorID, id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func moderationTarget(c *gin.Context) (actorID, id int64, ok bool) {
	if actorID, ok = queryID(c, "actorId", true); !ok {
		return 0, 0, false
	}
	if id, ok = queryID(c, "id", true); !ok {
		return 0, 0, false
	}
	return actorID, id, true
}

func (h *Handler) createReview(c *gin.Context) {
	var in model.ReviewInput
	if !bind(c, &in) {
		return
	}
	r, err := h.api.CreateReview(c.Request.Context(), in)
	respond(c, r, err, func(r model.Review) any { return api.FromReview(r) })
}

func (h *Handler) listReviews(c *gin.Context) {
	userID, ok := queryID(c, "userId", false)
	if !ok {
		return
	}
	reviews, err := h.api.GetReviews(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, api.Convert(reviews, api.FromReview))
}
