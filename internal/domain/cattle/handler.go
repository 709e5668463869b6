package cattle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cattle-breeding-timeline/internal/middleware"
	"cattle-breeding-timeline/internal/ports/wallet"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/cattle", func(cr chi.Router) {
		cr.Post("/", createCattleHandler(svc))
		cr.Get("/", listCattleHandler(svc))
		cr.Get("/{cattleID}", getCattleHandler(svc))
	})
}

type createCattleRequest struct {
	Type               string `json:"type"` // cow | buffalo
	Breed              string `json:"breed"`
	TagNumber          string `json:"tag_number"`
	NickName           string `json:"nick_name"`
	DateOfLastDelivery string `json:"date_of_last_delivery"` // YYYY-MM-DD
}

type cattleResponse struct {
	ID                 string    `json:"id"`
	OwnerUserID        string    `json:"owner_user_id"`
	Type               Species   `json:"type"`
	Breed              string    `json:"breed"`
	TagNumber          string    `json:"tag_number"`
	NickName           string    `json:"nick_name"`
	DateOfLastDelivery string    `json:"date_of_last_delivery"`
	CreatedAt          time.Time `json:"created_at"`
}

func createCattleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createCattleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := time.Parse("2006-01-02", strings.TrimSpace(req.DateOfLastDelivery))
		if err != nil {
			http.Error(w, "date_of_last_delivery must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		c, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			Type:               req.Type,
			Breed:              req.Breed,
			TagNumber:          req.TagNumber,
			NickName:           req.NickName,
			DateOfLastDelivery: d,
		})
		if err != nil {
			switch {
			case errors.Is(err, wallet.ErrInsufficientBalance):
				http.Error(w, "insufficient balance", http.StatusForbidden)
			case errors.Is(err, ErrAlreadyExists):
				http.Error(w, "tag number already in use", http.StatusConflict)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, "invalid input", http.StatusBadRequest)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, toCattleResponse(c))
	}
}

func listCattleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]cattleResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toCattleResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getCattleHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := svc.GetByID(r.Context(), chi.URLParam(r, "cattleID"))
		if err != nil {
			http.Error(w, "cattle not found", http.StatusNotFound)
			return
		}
		if c.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, toCattleResponse(c))
	}
}

func toCattleResponse(c Cattle) cattleResponse {
	return cattleResponse{
		ID:                 c.ID,
		OwnerUserID:        c.OwnerUserID,
		Type:               c.Type,
		Breed:              c.Breed,
		TagNumber:          c.TagNumber,
		NickName:           c.NickName,
		DateOfLastDelivery: c.DateOfLastDelivery.Format("2006-01-02"),
		CreatedAt:          c.CreatedAt,
	}
}

// writeJSON está duplicado a propósito en los handlers de cada módulo;
// si aparece en más lugares recién ahí vale extraerlo a un helper común.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
