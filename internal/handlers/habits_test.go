package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
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

type fakeHabitRepo struct {
	habits map[uuid.UUID]*models.Habit
}

func newFakeHabitRepo() *fakeHabitRepo {
	return &fakeHabitRepo{habits: make(map[uuid.UUID]*models.Habit)}
}

func (f *fakeHabitRepo) Create(ctx context.Context, habit *models.Habit) error {
	habit.CreatedAt = time.Now()
	habit.UpdatedAt = habit.CreatedAt
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Habit, error) {
	habit, ok := f.habits[id]
	if !ok {
		return nil, fmt.Errorf("habit %s: %w", id, database.ErrNotFound)
	}
	copied := *habit
	return &copied, nil
}

func (f *fakeHabitRepo) Update(ctx context.Context, habit *models.Habit) error {
	if _, ok := f.habits[habit.ID]; !ok {
		return fmt.Errorf("habit %s: %w", habit.ID, database.ErrNotFound)
	}
	habit.UpdatedAt = time.Now()
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.habits[id]; !ok {
		return fmt.Errorf("habit %s: %w", id, database.ErrNotFound)
	}
	delete(f.habits, id)
	return nil
}

func (f *fakeHabitRepo) ListByOwnerPaginated(ctx context.Context, owner uuid.UUID, page, pageSize int) ([]*models.Habit, int, error) {
	var all []*models.Habit
	for _, habit := range f.habits {
		if habit.Owner == owner {
			all = append(all, habit)
		}
	}
	return paginate(all, page, pageSize), len(all), nil
}

func (f *fakeHabitRepo) ListPublicPaginated(ctx context.Context, page, pageSize int) ([]*models.Habit, int, error) {
	var all []*models.Habit
	for _, habit := range f.habits {
		if habit.IsPublic {
			all = append(all, habit)
		}
	}
	return paginate(all, page, pageSize), len(all), nil
}

func paginate(habits []*models.Habit, page, pageSize int) []*models.Habit {
	start := (page - 1) * pageSize
	if start >= len(habits) {
		return nil
	}
	end := start + pageSize
	if end > len(habits) {
		end = len(habits)
	}
	return habits[start:end]
}

type fakeScheduleStore struct {
	jobs map[string]*models.ScheduledJob
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{jobs: make(map[string]*models.ScheduledJob)}
}

func (f *fakeScheduleStore) Upsert(ctx context.Context, job *models.ScheduledJob) error {
	f.jobs[job.Name] = job
	return nil
}

func (f *fakeScheduleStore) Replace(ctx context.Context, name string, job *models.ScheduledJob) error {
	delete(f.jobs, name)
	f.jobs[job.Name] = job
	return nil
}

func (f *fakeScheduleStore) DeleteByName(ctx context.Context, name string) error {
	delete(f.jobs, name)
	return nil
}

type habitTestEnv struct {
	repo   *fakeHabitRepo
	store  *fakeScheduleStore
	router *mux.Router
	user   *models.User
}

func newHabitTestEnv(t *testing.T) *habitTestEnv {
	t.Helper()
	repo := newFakeHabitRepo()
	store := newFakeScheduleStore()
	engine := validation.NewEngine(repo)
	binder := scheduling.NewBinder(store, "Europe/Moscow", zap.NewNop())
	handler := NewHabitHandler(repo, engine, binder, zap.NewNop())

	user := &models.User{ID: uuid.New(), Email: "owner@example.com", ChatID: 1}

	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	return &habitTestEnv{repo: repo, store: store, router: r, user: user}
}

func (e *habitTestEnv) do(t *testing.T, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string][]string {
	t.Helper()
	var body map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestCreateHabit(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "POST", "/create/", map[string]any{
		"title":    "morning run",
		"location": "park",
		"action":   "run",
		"period":   2,
		"time":     "07:30",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var habit models.Habit
	if err := json.NewDecoder(rec.Body).Decode(&habit); err != nil {
		t.Fatalf("failed to decode habit: %v", err)
	}
	if habit.Owner != env.user.ID {
		t.Errorf("expected owner %s, got %s", env.user.ID, habit.Owner)
	}
	if habit.Period != 2 {
		t.Errorf("expected period 2, got %d", habit.Period)
	}

	// Creating a habit must register its scheduled job.
	jobName := scheduling.JobName(habit.ID)
	job, ok := env.store.jobs[jobName]
	if !ok {
		t.Fatalf("scheduled job %s not registered", jobName)
	}
	if job.Minute != "30" || job.Hour != "7" || job.DayOfWeek != "*/2" {
		t.Errorf("unexpected recurrence %s %s %s", job.Minute, job.Hour, job.DayOfWeek)
	}
}

func TestCreateHabitDefaults(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "POST", "/create/", map[string]any{
		"title":    "stretching",
		"location": "home",
		"action":   "stretch",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var habit models.Habit
	if err := json.NewDecoder(rec.Body).Decode(&habit); err != nil {
		t.Fatalf("failed to decode habit: %v", err)
	}
	if habit.Period != models.DefaultPeriod {
		t.Errorf("expected default period %d, got %d", models.DefaultPeriod, habit.Period)
	}
	if time.Duration(habit.TimeToComplete) != models.MaxTimeToComplete {
		t.Errorf("expected default time_to_complete %v, got %v", models.MaxTimeToComplete, time.Duration(habit.TimeToComplete))
	}
}

func TestCreateHabitMissingRequiredField(t *testing.T) {
	env := newHabitTestEnv(t)

	tests := []struct {
		field string
		body  map[string]any
	}{
		{field: "title", body: map[string]any{"location": "park", "action": "run"}},
		{field: "location", body: map[string]any{"title": "run", "action": "run"}},
		{field: "action", body: map[string]any{"title": "run", "location": "park"}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rec := env.do(t, env.user, "POST", "/create/", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			body := decodeErrors(t, rec)
			msgs, ok := body[tt.field]
			if !ok || len(msgs) != 1 || msgs[0] != validation.MsgRequiredField {
				t.Errorf("expected {%q: [%q]}, got %v", tt.field, validation.MsgRequiredField, body)
			}
		})
	}
}

func TestCreateHabitCrossFieldRules(t *testing.T) {
	env := newHabitTestEnv(t)

	// Seed a non-pleasant habit to reference.
	badHabit := &models.Habit{ID: uuid.New(), Owner: env.user.ID, IsGood: false}
	env.repo.habits[badHabit.ID] = badHabit
	goodHabit := &models.Habit{ID: uuid.New(), Owner: env.user.ID, IsGood: true}
	env.repo.habits[goodHabit.ID] = goodHabit

	base := func() map[string]any {
		return map[string]any{
			"title":    "run",
			"location": "park",
			"action":   "run",
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]any)
		wantMsg string
	}{
		{
			name: "award and related",
			mutate: func(m map[string]any) {
				m["award"] = "candy"
				m["related_habit"] = goodHabit.ID.String()
			},
			wantMsg: validation.MsgAwardAndRelated,
		},
		{
			name: "time to complete over limit",
			mutate: func(m map[string]any) {
				m["time_to_complete"] = 200
			},
			wantMsg: validation.MsgTimeToComplete,
		},
		{
			name: "related habit not pleasant",
			mutate: func(m map[string]any) {
				m["related_habit"] = badHabit.ID.String()
			},
			wantMsg: validation.MsgRelatedNotGood,
		},
		{
			name: "good habit with award",
			mutate: func(m map[string]any) {
				m["is_good"] = true
				m["award"] = "candy"
			},
			wantMsg: validation.MsgGoodHabitNoExtra,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			rec := env.do(t, env.user, "POST", "/create/", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			errs := decodeErrors(t, rec)
			msgs, ok := errs[validation.NonFieldErrors]
			if !ok || len(msgs) != 1 || msgs[0] != tt.wantMsg {
				t.Errorf("expected non_field_errors [%q], got %v", tt.wantMsg, errs)
			}
		})
	}
}

func TestCreateHabitPeriodOutOfRange(t *testing.T) {
	env := newHabitTestEnv(t)

	for _, period := range []int{0, 8, -1} {
		rec := env.do(t, env.user, "POST", "/create/", map[string]any{
			"title":    "run",
			"location": "park",
			"action":   "run",
			"period":   period,
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("period %d: expected 400, got %d", period, rec.Code)
		}
		errs := decodeErrors(t, rec)
		if msgs, ok := errs["period"]; !ok || msgs[0] != validation.MsgInvalidValue {
			t.Errorf("period %d: expected invalid value error, got %v", period, errs)
		}
	}
}

func TestUpdateHabitRebinds(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "POST", "/create/", map[string]any{
		"title":    "run",
		"location": "park",
		"action":   "run",
		"time":     "07:30",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}
	var habit models.Habit
	if err := json.NewDecoder(rec.Body).Decode(&habit); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, env.user, "PATCH", "/edit/"+habit.ID.String()+"/", map[string]any{
		"time":   "21:00",
		"period": 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	job := env.store.jobs[scheduling.JobName(habit.ID)]
	if job == nil {
		t.Fatal("scheduled job missing after update")
	}
	if job.Hour != "21" || job.Minute != "0" || job.DayOfWeek != "*/5" {
		t.Errorf("job not rebound: %s %s %s", job.Minute, job.Hour, job.DayOfWeek)
	}
}

func TestUpdateHabitForbiddenForNonOwner(t *testing.T) {
	env := newHabitTestEnv(t)

	habit := &models.Habit{ID: uuid.New(), Owner: env.user.ID, Title: "run", Location: "park", Action: "run", Period: 1}
	env.repo.habits[habit.ID] = habit

	stranger := &models.User{ID: uuid.New()}
	rec := env.do(t, stranger, "PATCH", "/edit/"+habit.ID.String()+"/", map[string]any{"title": "hijack"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUpdateHabitNullClearsAward(t *testing.T) {
	env := newHabitTestEnv(t)

	pleasant := &models.Habit{ID: uuid.New(), Owner: env.user.ID, IsGood: true, Period: 1}
	env.repo.habits[pleasant.ID] = pleasant

	award := "candy"
	habit := &models.Habit{
		ID: uuid.New(), Owner: env.user.ID,
		Title: "run", Location: "park", Action: "run",
		Period: 1, Award: &award,
	}
	env.repo.habits[habit.ID] = habit

	// An explicit null must clear the award, so swapping it for a
	// related habit in one request passes the mutual-exclusion rule.
	rec := env.do(t, env.user, "PATCH", "/edit/"+habit.ID.String()+"/", map[string]any{
		"award":         nil,
		"related_habit": pleasant.ID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored := env.repo.habits[habit.ID]
	if stored.Award != nil {
		t.Errorf("award should be cleared, got %q", *stored.Award)
	}
	if stored.RelatedHabit == nil || *stored.RelatedHabit != pleasant.ID {
		t.Errorf("related habit not set: %v", stored.RelatedHabit)
	}
}

func TestUpdateHabitNullClearsRelatedHabit(t *testing.T) {
	env := newHabitTestEnv(t)

	pleasant := &models.Habit{ID: uuid.New(), Owner: env.user.ID, IsGood: true, Period: 1}
	env.repo.habits[pleasant.ID] = pleasant

	habit := &models.Habit{
		ID: uuid.New(), Owner: env.user.ID,
		Title: "run", Location: "park", Action: "run",
		Period: 1, RelatedHabit: &pleasant.ID,
	}
	env.repo.habits[habit.ID] = habit

	rec := env.do(t, env.user, "PATCH", "/edit/"+habit.ID.String()+"/", map[string]any{
		"related_habit": nil,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if stored := env.repo.habits[habit.ID]; stored.RelatedHabit != nil {
		t.Errorf("related habit should be cleared, got %v", *stored.RelatedHabit)
	}
}

func TestUpdateHabitRejectsBlankRequiredField(t *testing.T) {
	env := newHabitTestEnv(t)

	for _, field := range []string{"title", "location", "action"} {
		for _, value := range []any{"", nil} {
			name := field + "_empty"
			if value == nil {
				name = field + "_null"
			}
			t.Run(name, func(t *testing.T) {
				habit := &models.Habit{
					ID: uuid.New(), Owner: env.user.ID,
					Title: "run", Location: "park", Action: "run",
					Period: 1,
				}
				env.repo.habits[habit.ID] = habit

				rec := env.do(t, env.user, "PATCH", "/edit/"+habit.ID.String()+"/", map[string]any{
					field: value,
				})
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
				}
				errs := decodeErrors(t, rec)
				msgs, ok := errs[field]
				if !ok || len(msgs) != 1 || msgs[0] != validation.MsgRequiredField {
					t.Errorf("expected {%q: [%q]}, got %v", field, validation.MsgRequiredField, errs)
				}

				if stored := env.repo.habits[habit.ID]; stored.Title != "run" || stored.Location != "park" || stored.Action != "run" {
					t.Errorf("rejected update must not change the record: %+v", stored)
				}
			})
		}
	}
}

func TestGetHabitNotFound(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "GET", "/view/"+uuid.NewString()+"/", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteHabitUnbinds(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "POST", "/create/", map[string]any{
		"title":    "run",
		"location": "park",
		"action":   "run",
	})
	var habit models.Habit
	if err := json.NewDecoder(rec.Body).Decode(&habit); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = env.do(t, env.user, "DELETE", "/delete/"+habit.ID.String()+"/", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	if _, ok := env.store.jobs[scheduling.JobName(habit.ID)]; ok {
		t.Error("scheduled job should be removed with the habit")
	}
	if _, ok := env.repo.habits[habit.ID]; ok {
		t.Error("habit row should be removed")
	}
}

func TestListHabitsPagination(t *testing.T) {
	env := newHabitTestEnv(t)

	for i := 0; i < 3; i++ {
		habit := &models.Habit{ID: uuid.New(), Owner: env.user.ID, Period: 1}
		env.repo.habits[habit.ID] = habit
	}
	// Another user's habit must not leak into the list.
	other := &models.Habit{ID: uuid.New(), Owner: uuid.New(), Period: 1}
	env.repo.habits[other.ID] = other

	rec := env.do(t, env.user, "GET", "/list/?page=1&page_size=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Count    int               `json:"count"`
		Next     *string           `json:"next"`
		Previous *string           `json:"previous"`
		Results  []json.RawMessage `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 3 {
		t.Errorf("expected count 3, got %d", body.Count)
	}
	if len(body.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(body.Results))
	}
	if body.Next == nil {
		t.Error("expected next page link")
	}
	if body.Previous != nil {
		t.Error("first page must not have a previous link")
	}
}

func TestListPublicHabits(t *testing.T) {
	env := newHabitTestEnv(t)

	visible := &models.Habit{ID: uuid.New(), Owner: uuid.New(), IsPublic: true, Period: 1}
	hidden := &models.Habit{ID: uuid.New(), Owner: uuid.New(), IsPublic: false, Period: 1}
	env.repo.habits[visible.ID] = visible
	env.repo.habits[hidden.ID] = hidden

	rec := env.do(t, env.user, "GET", "/list_public/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Count   int             `json:"count"`
		Results []*models.Habit `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("expected 1 public habit, got %d", body.Count)
	}
	if len(body.Results) != 1 || body.Results[0].ID != visible.ID {
		t.Errorf("unexpected results: %v", body.Results)
	}
}

func TestHabitWireFormat(t *testing.T) {
	env := newHabitTestEnv(t)

	rec := env.do(t, env.user, "POST", "/create/", map[string]any{
		"title":            "run",
		"location":         "park",
		"action":           "run",
		"time":             "07:30",
		"time_to_complete": 90,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create failed: %d", rec.Code)
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if string(raw["time"]) != `"07:30:00"` {
		t.Errorf("expected time \"07:30:00\", got %s", raw["time"])
	}
	if string(raw["time_to_complete"]) != `"00:01:30"` {
		t.Errorf("expected time_to_complete \"00:01:30\", got %s", raw["time_to_complete"])
	}
	if string(raw["award"]) != "null" {
		t.Errorf("expected award null, got %s", raw["award"])
	}
	if string(raw["related_habit"]) != "null" {
		t.Errorf("expected related_habit null, got %s", raw["related_habit"])
	}
}
