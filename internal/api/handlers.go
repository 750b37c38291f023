package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"

	"github.com/rewired-gh/smartbin/internal/aggregator"
	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

type handler struct {
	ctrl Controller
}

// binView is the JSON shape of a bin: its state plus derived figures.
type binView struct {
	models.BinState
	Contamination aggregator.Contamination `json:"contamination"`
	LastEmptied   string                   `json:"last_emptied"`
	Phase         engine.Phase             `json:"phase"`
}

func (h *handler) view(bin models.BinState) binView {
	if bin.Events == nil {
		bin.Events = []models.Event{}
	}
	return binView{
		BinState:      bin,
		Contamination: aggregator.ContaminationOf(bin.Categories, bin.TargetCategory),
		LastEmptied:   humanize.Time(bin.LastEmptiedAt),
		Phase:         h.ctrl.Phase(),
	}
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"phase":  string(h.ctrl.Phase()),
	})
}

func (h *handler) getBin(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.ctrl.Snapshot()))
}

func (h *handler) patchBin(w http.ResponseWriter, r *http.Request) {
	var u engine.FieldUpdate
	if !decode(w, r, &u) {
		return
	}
	bin, err := h.ctrl.UpdateFields(u)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(bin))
}

func (h *handler) emptyBin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.ctrl.EmptyBin(r.Context())))
}

func (h *handler) resetBin(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.ctrl.Reset()))
}

func (h *handler) setTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if !decode(w, r, &body) {
		return
	}
	c, err := models.ParseCategory(body.Category)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bin, err := h.ctrl.SetTargetCategory(c)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(bin))
}

func (h *handler) clearEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view(h.ctrl.ClearEvents()))
}

func (h *handler) removeEvent(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event index")
		return
	}
	bin, err := h.ctrl.RemoveEvent(i)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(bin))
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeCommandError(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrInvalidCommand) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("Command failed: %v", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response: %v", err)
	}
}
