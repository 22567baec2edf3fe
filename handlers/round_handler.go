package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/svanlaere/schaakclub-portal/services"
)

const dateLayout = "2006-01-02"

type RoundHandler struct {
	roundService        services.RoundService
	postponementService services.PostponementService
}

func NewRoundHandler(roundService services.RoundService, postponementService services.PostponementService) *RoundHandler {
	return &RoundHandler{
		roundService:        roundService,
		postponementService: postponementService,
	}
}

// ListTournaments handles GET /tournaments
func (h *RoundHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.roundService.ListTournaments(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

// ListRounds handles GET /tournamentRounds?tournament_id=N
func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.Atoi(r.URL.Query().Get("tournament_id"))
	if err != nil || tournamentID < 1 {
		badRequestResponse(w, r, fmt.Errorf("invalid tournament_id query parameter"))
		return
	}

	rounds, err := h.roundService.ListRounds(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil)
}

// CreateMakeupRound handles POST /tournamentRounds/makeup
func (h *RoundHandler) CreateMakeupRound(w http.ResponseWriter, r *http.Request) {
	var input struct {
		TournamentID     int     `json:"tournament_id"`
		AfterRoundNumber int     `json:"after_round_number"`
		Date             string  `json:"date"`
		Startuur         string  `json:"startuur"`
		Label            *string `json:"label"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	datum, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("date must be YYYY-MM-DD"))
		return
	}

	round, err := h.roundService.CreateMakeupRound(r.Context(), services.CreateMakeupRoundInput{
		TournamentID:     input.TournamentID,
		AfterRoundNumber: input.AfterRoundNumber,
		Datum:            datum,
		Startuur:         input.Startuur,
		Label:            input.Label,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"round": round}, nil)
}

// UpdateMakeupRoundDate handles PUT /tournamentRounds/{roundID}/date
func (h *RoundHandler) UpdateMakeupRoundDate(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Date     string  `json:"date"`
		Startuur *string `json:"startuur"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	datum, err := time.Parse(dateLayout, input.Date)
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("date must be YYYY-MM-DD"))
		return
	}

	round, err := h.roundService.UpdateMakeupRoundDate(r.Context(), roundID, datum, input.Startuur)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"round": round}, nil)
}

// DeleteMakeupRound handles DELETE /tournamentRounds/{roundID}
func (h *RoundHandler) DeleteMakeupRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.roundService.DeleteMakeupRound(r.Context(), roundID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostponeGame handles POST /tournamentRounds/postpone-game
func (h *RoundHandler) PostponeGame(w http.ResponseWriter, r *http.Request) {
	var input struct {
		GameID        int `json:"game_id"`
		MakeupRoundID int `json:"makeup_round_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.postponementService.PostponeGame(r.Context(), input.GameID, input.MakeupRoundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"postponement": result}, nil)
}

// UndoPostponement handles POST /tournamentRounds/postpone-game/undo
func (h *RoundHandler) UndoPostponement(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OriginalGameID int `json:"original_game_id"`
		NewGameID      int `json:"new_game_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.postponementService.UndoPostponement(r.Context(), input.OriginalGameID, input.NewGameID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddGame handles POST /tournamentRounds/{roundID}/games
func (h *RoundHandler) AddGame(w http.ResponseWriter, r *http.Request) {
	roundID, err := urlParamInt(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Speler1ID int     `json:"speler1_id"`
		Speler2ID *int    `json:"speler2_id"`
		Result    *string `json:"result"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.postponementService.AddGameToMakeupRound(r.Context(), services.AddGameInput{
		RoundID:   roundID,
		Speler1ID: input.Speler1ID,
		Speler2ID: input.Speler2ID,
		Result:    input.Result,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil)
}
