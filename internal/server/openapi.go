package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
)

// HealthCheckResult is the status of one dependency in a /healthz response.
type HealthCheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type HealthResponse map[string]HealthCheckResult

type sessionPath struct {
	Code string `path:"code"`
}

type playerPath struct {
	Code     string `path:"code"`
	PlayerID string `path:"playerId"`
}

type streamInput struct {
	Code  string `path:"code"`
	Token string `query:"token"`
}

type pickInput struct {
	Code string `path:"code"`
	PickRequest
}

type answerInput struct {
	Code string `path:"code"`
	AnswerRequest
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "WorldMapQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Turn-based multiplayer world map quiz. Player routes need a guest token " +
		"(Authorization: Bearer <token>) obtained from POST /api/guests.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/guests
	postGuest, _ := r.NewOperationContext(http.MethodPost, "/api/guests")
	postGuest.SetSummary("Create guest")
	postGuest.SetDescription("Issues an anonymous guest identity and its token.")
	postGuest.AddReqStructure(GuestRequest{})
	postGuest.AddRespStructure(GuestResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postGuest.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postGuest)

	// GET /api/countries
	getCountries, _ := r.NewOperationContext(http.MethodGet, "/api/countries")
	getCountries.SetSummary("List countries")
	getCountries.SetDescription("Returns the ids of every playable country.")
	getCountries.AddRespStructure([]CountryItem{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCountries)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Create session")
	postSession.SetDescription("Creates a waiting session owned by the caller, who joins as the first player.")
	postSession.AddReqStructure(CreateSessionRequest{})
	postSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(postSession)

	// GET /api/sessions/{code}
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{code}")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the session snapshot with due timers applied.")
	getSession.AddReqStructure(sessionPath{})
	getSession.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/sessions/{code}
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{code}")
	deleteSession.SetSummary("Delete session")
	deleteSession.SetDescription("Deletes a waiting session. Owner only.")
	deleteSession.AddReqStructure(sessionPath{})
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(deleteSession)

	for _, op := range []struct {
		path, summary, desc string
	}{
		{"/api/sessions/{code}/join", "Join session", "Adds the caller to a waiting session."},
		{"/api/sessions/{code}/start", "Start session", "Starts the game. Owner only, at least 2 active players."},
		{"/api/sessions/{code}/skip", "Skip turn", "Ends the caller's turn without answering."},
	} {
		oc, _ := r.NewOperationContext(http.MethodPost, op.path)
		oc.SetSummary(op.summary)
		oc.SetDescription(op.desc)
		oc.AddReqStructure(sessionPath{})
		oc.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
		oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
		_ = r.AddOperation(oc)
	}

	// POST /api/sessions/{code}/pick
	postPick, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{code}/pick")
	postPick.SetSummary("Pick country")
	postPick.SetDescription("Opens a country as the target of the caller's turn.")
	postPick.AddReqStructure(pickInput{})
	postPick.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	postPick.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postPick)

	// POST /api/sessions/{code}/roll
	postRoll, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{code}/roll")
	postRoll.SetSummary("Roll dice")
	postRoll.SetDescription("Draws a random unanswered country and locks the turn to it.")
	postRoll.AddReqStructure(sessionPath{})
	postRoll.AddRespStructure(RollResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postRoll.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postRoll)

	// POST /api/sessions/{code}/answer
	postAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/sessions/{code}/answer")
	postAnswer.SetSummary("Submit answer")
	postAnswer.SetDescription("Judges an answer for the open target. Exact answers score " +
		"3, close ones 2. Answering a country that is already resolved returns already_answered.")
	postAnswer.AddReqStructure(answerInput{})
	postAnswer.AddRespStructure(AnswerResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postAnswer)

	// DELETE /api/sessions/{code}/players/{playerId}
	removePlayer, _ := r.NewOperationContext(http.MethodDelete, "/api/sessions/{code}/players/{playerId}")
	removePlayer.SetSummary("Remove player")
	removePlayer.SetDescription("Removes a player. Players may remove themselves; the owner may remove anyone.")
	removePlayer.AddReqStructure(playerPath{})
	removePlayer.AddRespStructure(SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	removePlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	_ = r.AddOperation(removePlayer)

	// GET /api/sessions/{code}/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{code}/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events stream of session snapshots. Pass the guest token as query parameter.")
	getEvents.AddReqStructure(streamInput{})
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/sessions/{code}/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/sessions/{code}/ws")
	getWS.SetSummary("WebSocket event stream")
	getWS.SetDescription("Upgrades to a WebSocket carrying the same events as the SSE stream.")
	getWS.AddReqStructure(streamInput{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("application/json"))
	_ = r.AddOperation(getWS)

	// GET /api/admin/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/admin/sessions")
	listSessions.SetSummary("List live sessions")
	listSessions.SetDescription("Returns sessions that have not finished. Requires basic auth.")
	listSessions.AddRespStructure([]AdminSessionSummary{}, openapi.WithHTTPStatus(http.StatusOK))
	listSessions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listSessions)

	// DELETE /api/admin/sessions/{code}
	forceDelete, _ := r.NewOperationContext(http.MethodDelete, "/api/admin/sessions/{code}")
	forceDelete.SetSummary("Remove session")
	forceDelete.SetDescription("Removes a session in any state. Requires basic auth.")
	forceDelete.AddReqStructure(sessionPath{})
	forceDelete.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	forceDelete.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(forceDelete)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
