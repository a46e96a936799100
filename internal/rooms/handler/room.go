package handler

import (
	"net/http"
	"strings"
	"time"

	"hotelbook/internal/rooms/service"
	apperrors "hotelbook/pkg/errors"
	httputil "hotelbook/pkg/http"
	"hotelbook/pkg/logger"
	"hotelbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service service.RoomService
	log     *logger.Logger
}

func NewRoomHandler(service service.RoomService, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var room model.Room
	if err := httputil.DecodeStrict(r, &room); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	created, err := h.service.Create(r.Context(), &room)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *RoomHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	rooms, err := h.service.GetAll(r.Context(), r.URL.Query().Get("room_type"))
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WriteSuccess(w, rooms); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAll", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("room", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	room, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, room); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("room", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var update model.RoomUpdate
	if err := httputil.DecodeStrict(r, &update); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, updated); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("room", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *RoomHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, err := httputil.ParseID("room", ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	query := r.URL.Query()
	start, err := parseTime("start_datetime", query.Get("start_datetime"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}
	end, err := parseTime("end_datetime", query.Get("end_datetime"))
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	quote, err := h.service.Availability(r.Context(), id, start, end)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func parseTime(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, apperrors.InvalidInput(name + " query parameter is required")
	}
	// An unescaped "+" offset arrives as a space.
	t, err := time.Parse(time.RFC3339, strings.ReplaceAll(raw, " ", "+"))
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("invalid " + name + " format, must be RFC3339")
	}
	return t, nil
}

func (h *RoomHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/rooms", h.GetAll)
	router.POST("/rooms", h.Create)
	router.GET("/rooms/:id", h.GetByID)
	router.PUT("/rooms/:id", h.Update)
	router.DELETE("/rooms/:id", h.Delete)
	router.GET("/rooms/:id/availability", h.Availability)
}
