package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/sketch-party-backend/internal/hub"
	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-party-backend/internal/store"
	"github.com/DoyleJ11/sketch-party-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const codeAttempts = 10

var errNoFreeCode = errors.New("no free room code")

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// freeCode returns a code no live room is using. The room itself is created
// by the first player to join it.
func freeCode(r *http.Request, h *hub.Hub, generate func() (string, error)) (string, error) {
	for range codeAttempts {
		c, err := generate()
		if err != nil {
			return "", err
		}
		lb, err := h.Get(r.Context(), c)
		if err != nil {
			return "", err
		}
		if lb == nil || lb.Closed() {
			return c, nil
		}
	}
	return "", errNoFreeCode
}

func CreateRoom(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := freeCode(r, h, GenerateCode)
		if err != nil {
			logger.Error("generate room code", zap.Error(err))
			http.Error(w, "failed to generate code", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		lb, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if lb == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		reply := make(chan types.RoomView, 1)
		if !lb.Send(lobby.GetState{Reply: reply}) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		select {
		case view := <-reply:
			writeJSON(w, http.StatusOK, view)
		case <-lb.Done():
			http.Error(w, "room not found", http.StatusNotFound)
		case <-r.Context().Done():
		}
	}
}

func RoomResults(repo store.Repository, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, 50)
		}

		results, err := repo.Recent(r.Context(), chi.URLParam(r, "code"), limit)
		if err != nil {
			logger.Error("load results", zap.Error(err))
			http.Error(w, "failed to load results", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
