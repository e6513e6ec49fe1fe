package app

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hollowbeak/bandshell/internal/observe"
	"github.com/hollowbeak/bandshell/internal/search"
	"github.com/hollowbeak/bandshell/pkg/media"
)

// searchRequest is the POST /search body.
type searchRequest struct {
	// Phrase is the spoken request, e.g. "play the astronaut problems".
	Phrase string `json:"phrase"`

	// MediaType is the optional framework hint ("generic", "music", "audio").
	MediaType media.Type `json:"media_type"`
}

// searchResponse is the POST /search reply.
type searchResponse struct {
	Results []media.Result `json:"results"`
}

// errorResponse is the JSON body for 4xx replies.
type errorResponse struct {
	Error string `json:"error"`
}

// handleSearch runs a full search and replies with the drained result list.
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	hint, ok := validateRequest(w, req)
	if !ok {
		return
	}

	results := search.Collect(a.engine.Search(r.Context(), req.Phrase, hint))

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	// Empty slice, not null: clients range over the array unconditionally.
	if results == nil {
		results = []media.Result{}
	}
	if err := json.NewEncoder(w).Encode(searchResponse{Results: results}); err != nil {
		observe.Logger(r.Context()).Warn("search response write failed", "err", err)
	}
}

// handleSearchWS streams results over a websocket as they are scored, one
// JSON message per result. The phrase comes from the query string. Closing
// the socket cancels the search between emissions.
func (a *App) handleSearchWS(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{
		Phrase:    r.URL.Query().Get("phrase"),
		MediaType: media.Type(r.URL.Query().Get("media_type")),
	}
	hint, ok := validateRequest(w, req)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead cancels the context when the client goes away, which stops
	// the enumeration between emissions.
	ctx := conn.CloseRead(r.Context())

	for result := range a.engine.Search(ctx, req.Phrase, hint) {
		if err := wsjson.Write(ctx, conn, result); err != nil {
			observe.Logger(ctx).Debug("websocket write failed", "err", err)
			return
		}
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}

// validateRequest checks the common request fields, writing a 400 and
// returning ok=false on failure. An empty media type means generic.
func validateRequest(w http.ResponseWriter, req searchRequest) (media.Type, bool) {
	if req.Phrase == "" {
		writeError(w, http.StatusBadRequest, "phrase is required")
		return "", false
	}
	hint := req.MediaType
	if hint == "" {
		hint = media.TypeGeneric
	}
	if !hint.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown media_type "+string(req.MediaType))
		return "", false
	}
	return hint, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// metricsHandler serves the Prometheus scrape endpoint backed by the OTel
// Prometheus exporter registered in observe.InitProvider.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
