package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/habitloop/habit-api/internal/database"
	"github.com/habitloop/habit-api/internal/models"
	"github.com/habitloop/habit-api/internal/request"
	"github.com/habitloop/habit-api/internal/scheduling"
	"github.com/habitloop/habit-api/internal/validation"
)

const (
	// DefaultPageSize is the default page size for list endpoints
	DefaultPageSize = 10
	// MaxPageSize is the maximum page size for list endpoints
	MaxPageSize = 100
)

// HabitHandler handles habit CRUD requests. Every write reconciles the
// habit's scheduled reminder job through the binder in the same request
// flow.
type HabitHandler struct {
	habits database.HabitRepositoryInterface
	engine *validation.Engine
	binder *scheduling.Binder
	log    *zap.Logger
}

// NewHabitHandler creates a new habit handler
func NewHabitHandler(habits database.HabitRepositoryInterface, engine *validation.Engine, binder *scheduling.Binder, log *zap.Logger) *HabitHandler {
	return &HabitHandler{habits: habits, engine: engine, binder: binder, log: log}
}

// RegisterRoutes registers habit routes on the given router
func (h *HabitHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/create/", h.CreateHabit).Methods("POST")
	r.HandleFunc("/list/", h.ListHabits).Methods("GET")
	r.HandleFunc("/list_public/", h.ListPublicHabits).Methods("GET")
	r.HandleFunc("/view/{id}/", h.GetHabit).Methods("GET")
	r.HandleFunc("/edit/{id}/", h.UpdateHabit).Methods("PATCH")
	r.HandleFunc("/delete/{id}/", h.DeleteHabit).Methods("DELETE")
}

// habitPayload is the request body for create and edit. Pointer fields
// distinguish "absent" from zero values so partial updates only touch
// what the caller sent. UnmarshalJSON records which keys the body
// carried, so an explicit null on a nullable field clears it instead
// of being mistaken for omission.
type habitPayload struct {
	Title          *string           `json:"title"`
	Location       *string           `json:"location"`
	Action         *string           `json:"action"`
	IsGood         *bool             `json:"is_good"`
	Award          *string           `json:"award"`
	IsPublic       *bool             `json:"is_public"`
	Period         *int              `json:"period"`
	TimeToComplete *models.Duration  `json:"time_to_complete"`
	Time           *models.TimeOfDay `json:"time"`
	RelatedHabit   *uuid.UUID        `json:"related_habit"`

	provided map[string]struct{}
}

func (p *habitPayload) UnmarshalJSON(data []byte) error {
	type plain habitPayload
	var body plain
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}

	*p = habitPayload(body)
	p.provided = make(map[string]struct{}, len(keys))
	for k := range keys {
		p.provided[k] = struct{}{}
	}
	return nil
}

// has reports whether the body carried the key, even as null.
func (p *habitPayload) has(field string) bool {
	_, ok := p.provided[field]
	return ok
}

// requiredFields returns the first create-required field the payload is
// missing or left empty, in the declaration order of the wire format.
func (p *habitPayload) missingRequired() string {
	switch {
	case p.Title == nil || *p.Title == "":
		return "title"
	case p.Location == nil || *p.Location == "":
		return "location"
	case p.Action == nil || *p.Action == "":
		return "action"
	}
	return ""
}

// blankRequired returns the first required field the payload carries
// as null or an empty string. Required fields can never be blanked
// once the habit exists.
func (p *habitPayload) blankRequired() string {
	switch {
	case p.has("title") && (p.Title == nil || *p.Title == ""):
		return "title"
	case p.has("location") && (p.Location == nil || *p.Location == ""):
		return "location"
	case p.has("action") && (p.Action == nil || *p.Action == ""):
		return "action"
	}
	return ""
}

// apply merges the payload onto a habit record. Nullable fields follow
// key presence so a carried null clears them.
func (p *habitPayload) apply(habit *models.Habit) {
	if p.Title != nil {
		habit.Title = *p.Title
	}
	if p.Location != nil {
		habit.Location = *p.Location
	}
	if p.Action != nil {
		habit.Action = *p.Action
	}
	if p.IsGood != nil {
		habit.IsGood = *p.IsGood
	}
	if p.has("award") {
		habit.Award = p.Award
	}
	if p.IsPublic != nil {
		habit.IsPublic = *p.IsPublic
	}
	if p.Period != nil {
		habit.Period = *p.Period
	}
	if p.TimeToComplete != nil {
		habit.TimeToComplete = *p.TimeToComplete
	}
	if p.Time != nil {
		habit.Time = *p.Time
	}
	if p.has("related_habit") {
		habit.RelatedHabit = p.RelatedHabit
	}
}

// CreateHabit validates and persists a new habit, then binds its
// scheduled reminder job.
func (h *HabitHandler) CreateHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var payload habitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, detailMalformedBody)
		return
	}

	if field := payload.missingRequired(); field != "" {
		respondJSON(w, http.StatusBadRequest, map[string][]string{
			field: {validation.MsgRequiredField},
		})
		return
	}

	habit := &models.Habit{
		ID:             uuid.New(),
		Owner:          user.ID,
		Period:         models.DefaultPeriod,
		TimeToComplete: models.Duration(models.MaxTimeToComplete),
	}
	now := time.Now()
	habit.Time = models.TimeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}
	payload.apply(habit)

	if !h.validate(r, w, habit) {
		return
	}

	ctx := r.Context()
	if err := h.habits.Create(ctx, habit); err != nil {
		h.log.Error("failed_to_create_habit", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	if err := h.binder.Bind(ctx, habit); err != nil {
		h.log.Error("failed_to_bind_habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	respondJSON(w, http.StatusCreated, habit)
}

// validate runs range checks and the cross-field rules, writing the
// error response itself. Returns false when the habit was rejected.
func (h *HabitHandler) validate(r *http.Request, w http.ResponseWriter, habit *models.Habit) bool {
	if habit.Period < models.MinPeriod || habit.Period > models.MaxPeriod {
		respondJSON(w, http.StatusBadRequest, map[string][]string{
			"period": {validation.MsgInvalidValue},
		})
		return false
	}

	if err := h.engine.ValidateHabit(r.Context(), habit); err != nil {
		if verr := validation.AsError(err); verr != nil {
			respondValidationError(w, verr)
			return false
		}
		if errors.Is(err, database.ErrNotFound) {
			respondJSON(w, http.StatusBadRequest, map[string][]string{
				"related_habit": {validation.MsgInvalidValue},
			})
			return false
		}
		h.log.Error("habit_validation_failed", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return false
	}
	return true
}

// GetHabit returns a single habit owned by the caller.
func (h *HabitHandler) GetHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	habit, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, habit)
}

// UpdateHabit merges a partial update, re-validates the whole record
// and replaces the scheduled job.
func (h *HabitHandler) UpdateHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	habit, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	var payload habitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondDetail(w, http.StatusBadRequest, detailMalformedBody)
		return
	}

	if field := payload.blankRequired(); field != "" {
		respondJSON(w, http.StatusBadRequest, map[string][]string{
			field: {validation.MsgRequiredField},
		})
		return
	}
	payload.apply(habit)

	if !h.validate(r, w, habit) {
		return
	}

	ctx := r.Context()
	if err := h.habits.Update(ctx, habit); err != nil {
		h.log.Error("failed_to_update_habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	if err := h.binder.Rebind(ctx, habit); err != nil {
		h.log.Error("failed_to_rebind_habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	respondJSON(w, http.StatusOK, habit)
}

// DeleteHabit unbinds the scheduled job, then removes the habit row.
// Unbind runs first so a failure cannot leave a job firing for a
// deleted habit.
func (h *HabitHandler) DeleteHabit(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	habit, ok := h.loadOwned(w, r, user.ID)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.binder.Unbind(ctx, habit.ID); err != nil {
		h.log.Error("failed_to_unbind_habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	if err := h.habits.Delete(ctx, habit.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
		h.log.Error("failed_to_delete_habit", zap.String("habit_id", habit.ID.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// ListHabits lists the caller's habits with pagination.
func (h *HabitHandler) ListHabits(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	page, pageSize := parsePagination(r)
	habits, total, err := h.habits.ListByOwnerPaginated(r.Context(), user.ID, page, pageSize)
	if err != nil {
		h.log.Error("failed_to_list_habits", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	h.respondPage(w, r, habits, page, pageSize, total)
}

// ListPublicHabits lists all public habits, regardless of owner.
func (h *HabitHandler) ListPublicHabits(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondDetail(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	page, pageSize := parsePagination(r)
	habits, total, err := h.habits.ListPublicPaginated(r.Context(), page, pageSize)
	if err != nil {
		h.log.Error("failed_to_list_public_habits", zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return
	}

	h.respondPage(w, r, habits, page, pageSize, total)
}

func (h *HabitHandler) respondPage(w http.ResponseWriter, r *http.Request, habits []*models.Habit, page, pageSize, total int) {
	if habits == nil {
		habits = []*models.Habit{}
	}
	respondJSON(w, http.StatusOK, paginatedResponse{
		Count:    total,
		Next:     pageLink(r, page+1, pageSize, total),
		Previous: pageLink(r, page-1, pageSize, total),
		Results:  habits,
	})
}

// loadOwned resolves the {id} path variable to a habit owned by owner,
// writing 404/403 responses itself.
func (h *HabitHandler) loadOwned(w http.ResponseWriter, r *http.Request, owner uuid.UUID) (*models.Habit, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondDetail(w, http.StatusNotFound, detailNotFound)
		return nil, false
	}

	habit, err := h.habits.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondDetail(w, http.StatusNotFound, detailNotFound)
			return nil, false
		}
		h.log.Error("failed_to_get_habit", zap.String("habit_id", id.String()), zap.Error(err))
		respondDetail(w, http.StatusInternalServerError, detailInternalError)
		return nil, false
	}

	if habit.Owner != owner {
		respondDetail(w, http.StatusForbidden, detailPermissionDenied)
		return nil, false
	}
	return habit, true
}

func parsePagination(r *http.Request) (page, pageSize int) {
	page = 1
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}

	pageSize = DefaultPageSize
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 {
			if parsed > MaxPageSize {
				pageSize = MaxPageSize
			} else {
				pageSize = parsed
			}
		}
	}
	return page, pageSize
}
