package timeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cattle-breeding-timeline/internal/domain/cattle"
	"cattle-breeding-timeline/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

func RegisterRoutes(r chi.Router, svc *Service, cattleSvc *cattle.Service) {
	r.Route("/cattle/{cattleID}/events", func(er chi.Router) {
		er.Post("/initial", createInitialEventsHandler(svc, cattleSvc))
		er.Get("/", getTimelineHandler(svc, cattleSvc))

		// Resolución por ID estable de evento, nunca por posición.
		er.Patch("/{eventID}", resolveEventHandler(svc, cattleSvc))
		er.Patch("/{eventID}/heat-check", resolveHeatCheckHandler(svc, cattleSvc))
		er.Patch("/{eventID}/pd-check", resolvePDCheckHandler(svc, cattleSvc))
	})
}

type resolveEventRequest struct {
	Status           string `json:"status"` // pending | completed | skipped
	CompletedDate    string `json:"completed_date"`     // YYYY-MM-DD
	AIStatus         string `json:"ai_status"`          // pending|done|not_done|no_ai
	SemenBullDetails string `json:"semen_bull_details"` // opcional
	HeatDate         string `json:"heat_date"`          // YYYY-MM-DD, opcional
}

type heatCheckRequest struct {
	Status           string   `json:"status"`
	CompletedDate    string   `json:"completed_date"`
	HeatVisible      *bool    `json:"heat_visible"`
	HeatSigns        []string `json:"heat_signs"`
	AIStatus         string   `json:"ai_status"`
	SemenBullDetails string   `json:"semen_bull_details"`
}

type pdCheckRequest struct {
	Status        string `json:"status"`
	CompletedDate string `json:"completed_date"`
	IsPregnant    *bool  `json:"is_pregnant"`
	AnimalType    string `json:"animal_type"` // cow | buffalo
}

type eventResponse struct {
	ID               string      `json:"id"`
	Kind             EventKind   `json:"kind"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	Status           EventStatus `json:"status"`
	ScheduledDate    string      `json:"scheduled_date"`
	ScheduledEndDate string      `json:"scheduled_end_date,omitempty"`
	CompletedDate    string      `json:"completed_date,omitempty"`
	AIStatus         AIStatus    `json:"ai_status,omitempty"`
	CycleNumber      int         `json:"cycle_number,omitempty"`
	HeatDate         string      `json:"heat_date,omitempty"`
	HeatVisible      bool        `json:"heat_visible"`
	HeatSigns        []string    `json:"heat_signs,omitempty"`
	SemenBullDetails string      `json:"semen_bull_details,omitempty"`
	AnimalType       AnimalType  `json:"animal_type,omitempty"`
	AIDate           string      `json:"ai_date,omitempty"`
	PDCheckDate      string      `json:"pd_check_date,omitempty"`
	IsPregnant       *bool       `json:"is_pregnant,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type timelineResponse struct {
	ID          string          `json:"id"`
	CattleID    string          `json:"cattle_id"`
	OwnerUserID string          `json:"owner_user_id"`
	Revision    int64           `json:"revision"`
	Events      []eventResponse `json:"events"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ownedCattle resuelve el animal del path y verifica que sea del caller.
func ownedCattle(w http.ResponseWriter, r *http.Request, cattleSvc *cattle.Service) (cattle.Cattle, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return cattle.Cattle{}, false
	}

	c, err := cattleSvc.GetByID(r.Context(), chi.URLParam(r, "cattleID"))
	if err != nil {
		http.Error(w, "cattle not found", http.StatusNotFound)
		return cattle.Cattle{}, false
	}
	if c.OwnerUserID != claims.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return cattle.Cattle{}, false
	}
	return c, true
}

func createInitialEventsHandler(svc *Service, cattleSvc *cattle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ownedCattle(w, r, cattleSvc)
		if !ok {
			return
		}

		t, err := svc.CreateInitialEvents(r.Context(), c.ID, c.OwnerUserID, c.DateOfLastDelivery)
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTimelineResponse(t))
	}
}

func getTimelineHandler(svc *Service, cattleSvc *cattle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ownedCattle(w, r, cattleSvc)
		if !ok {
			return
		}

		t, err := svc.GetBySubject(r.Context(), c.ID)
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTimelineResponse(t))
	}
}

func resolveEventHandler(svc *Service, cattleSvc *cattle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ownedCattle(w, r, cattleSvc)
		if !ok {
			return
		}

		var req resolveEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		completed, err := parseOptionalDate(req.CompletedDate)
		if err != nil {
			http.Error(w, "completed_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		heatDate, err := parseOptionalDate(req.HeatDate)
		if err != nil {
			http.Error(w, "heat_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		t, err := svc.ResolveEvent(r.Context(), c.ID, chi.URLParam(r, "eventID"), ResolveInput{
			Status:           EventStatus(req.Status),
			CompletedDate:    completed,
			AIStatus:         AIStatus(req.AIStatus),
			SemenBullDetails: strings.TrimSpace(req.SemenBullDetails),
			HeatDate:         heatDate,
		})
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTimelineResponse(t))
	}
}

func resolveHeatCheckHandler(svc *Service, cattleSvc *cattle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ownedCattle(w, r, cattleSvc)
		if !ok {
			return
		}

		var req heatCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		completed, err := parseOptionalDate(req.CompletedDate)
		if err != nil {
			http.Error(w, "completed_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		t, err := svc.ResolveHeatCheck(r.Context(), c.ID, chi.URLParam(r, "eventID"), HeatCheckInput{
			Status:           EventStatus(req.Status),
			CompletedDate:    completed,
			HeatVisible:      req.HeatVisible,
			HeatSigns:        req.HeatSigns,
			AIStatus:         AIStatus(req.AIStatus),
			SemenBullDetails: strings.TrimSpace(req.SemenBullDetails),
		})
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTimelineResponse(t))
	}
}

func resolvePDCheckHandler(svc *Service, cattleSvc *cattle.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := ownedCattle(w, r, cattleSvc)
		if !ok {
			return
		}

		var req pdCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.IsPregnant == nil {
			http.Error(w, "is_pregnant is required", http.StatusBadRequest)
			return
		}

		completed, err := time.Parse(dateLayout, strings.TrimSpace(req.CompletedDate))
		if err != nil {
			http.Error(w, "completed_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		animal := AnimalType(strings.ToLower(strings.TrimSpace(req.AnimalType)))
		if animal == "" {
			// Si el cliente no lo manda, la especie registrada manda.
			animal = AnimalType(c.Type)
		}

		t, err := svc.ResolvePDCheck(r.Context(), c.ID, chi.URLParam(r, "eventID"), PDCheckInput{
			Status:        EventStatus(req.Status),
			CompletedDate: completed,
			IsPregnant:    *req.IsPregnant,
			AnimalType:    animal,
		})
		if err != nil {
			writeTimelineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTimelineResponse(t))
	}
}

func writeTimelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrAlreadyExists):
		http.Error(w, "timeline already exists", http.StatusConflict)
	case errors.Is(err, ErrNoAnchorAI):
		http.Error(w, "no completed AI event found", http.StatusConflict)
	case errors.Is(err, ErrConflict):
		http.Error(w, "concurrent modification", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func toEventResponse(e Event) eventResponse {
	return eventResponse{
		ID:               e.ID,
		Kind:             e.Kind,
		Title:            e.Title,
		Description:      e.Description,
		Status:           e.Status,
		ScheduledDate:    e.ScheduledDate.Format(dateLayout),
		ScheduledEndDate: formatDate(e.ScheduledEndDate),
		CompletedDate:    formatDate(e.CompletedDate),
		AIStatus:         e.AIStatus,
		CycleNumber:      e.CycleNumber,
		HeatDate:         formatDate(e.HeatDate),
		HeatVisible:      e.HeatVisible,
		HeatSigns:        e.HeatSigns,
		SemenBullDetails: e.SemenBullDetails,
		AnimalType:       e.AnimalType,
		AIDate:           formatDate(e.AIDate),
		PDCheckDate:      formatDate(e.PDCheckDate),
		IsPregnant:       e.IsPregnant,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func toTimelineResponse(t Timeline) timelineResponse {
	events := make([]eventResponse, 0, len(t.Events))
	for _, e := range t.Events {
		events = append(events, toEventResponse(e))
	}
	return timelineResponse{
		ID:          t.ID,
		CattleID:    t.CattleID,
		OwnerUserID: t.OwnerUserID,
		Revision:    t.Revision,
		Events:      events,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// writeJSON duplicado a propósito por módulo (ver nota en cattle/handler.go).
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
