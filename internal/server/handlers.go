package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/justchokingaround/moodcast/internal/providers/youtube"
	"github.com/justchokingaround/moodcast/internal/recommend"
	"github.com/justchokingaround/moodcast/internal/resolver"
)

const (
	defaultSongCount = 10
	maxSongCount     = 20
	maxBodyBytes     = 1 << 16
)

type handlers struct {
	svc Recommender
}

type songsRequest struct {
	Mood  string `json:"mood"`
	Count int    `json:"count"`
}

type songsResponse struct {
	Mood  string           `json:"mood"`
	Songs []recommend.Song `json:"songs"`
}

type podcastsRequest struct {
	Mood string `json:"mood"`
}

type podcastsResponse struct {
	Mood     string                   `json:"mood"`
	Podcasts []resolver.PodcastResult `json:"podcasts"`
}

func (h *handlers) songs(w http.ResponseWriter, r *http.Request) {
	var req songsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	count := req.Count
	switch {
	case count <= 0:
		count = defaultSongCount
	case count > maxSongCount:
		count = maxSongCount
	}

	songs := h.svc.Songs(r.Context(), mood, count)
	if len(songs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "could not generate songs for this mood")
		return
	}

	writeJSON(w, http.StatusOK, songsResponse{Mood: mood, Songs: songs})
}

func (h *handlers) podcasts(w http.ResponseWriter, r *http.Request) {
	var req podcastsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mood := strings.TrimSpace(req.Mood)
	if mood == "" {
		writeError(w, http.StatusBadRequest, "mood is required")
		return
	}

	list := h.svc.Podcasts(r.Context(), mood)
	if len(list) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "no podcasts found for this mood")
		return
	}

	writeJSON(w, http.StatusOK, podcastsResponse{Mood: mood, Podcasts: list})
}

func (h *handlers) poster(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	poster := h.svc.Poster(r.Context(), q.Get("title"), q.Get("artist"))
	writeJSON(w, http.StatusOK, map[string]string{"poster": poster})
}

func (h *handlers) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	searchURL := strings.TrimSpace(q.Get("url"))

	if query == "" && searchURL == "" {
		writeError(w, http.StatusBadRequest, "q or url is required")
		return
	}
	if searchURL != "" && !youtube.IsSearchURL(searchURL) {
		writeError(w, http.StatusBadRequest, "url must be a YouTube search results URL")
		return
	}

	res := h.svc.ResolveVideo(r.Context(), resolver.VideoQuery{Query: query, SearchURL: searchURL})
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
