package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/arawak/thankyou/internal/card"
	"github.com/arawak/thankyou/internal/catalog"
	"github.com/arawak/thankyou/internal/design"
	"github.com/arawak/thankyou/internal/search"
	"github.com/arawak/thankyou/internal/studio"
)

type sessionKeyType struct{}

var sessionKey = sessionKeyType{}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid session id", map[string]any{"error": err.Error()})
			return
		}
		sess, err := s.sessions.Get(id)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func sessionFrom(r *http.Request) *studio.Session {
	sess, _ := r.Context().Value(sessionKey).(*studio.Session)
	return sess
}

func (s *Server) GetOptions(w http.ResponseWriter, _ *http.Request) {
	resp := Options{
		Fonts:  make([]FontOption, 0, len(design.Fonts)),
		Colors: make([]string, 0, len(design.Colors)),
	}
	for _, f := range design.Fonts {
		resp.Fonts = append(resp.Fonts, FontOption{Value: string(f), Label: f.Label(), Generic: f.Generic()})
	}
	for _, c := range design.Colors {
		resp.Colors = append(resp.Colors, string(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) CreateSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.Create()
	if errors.Is(err, studio.ErrTooManySessions) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusServiceUnavailable, "session_limit", "too many open sessions", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not create session", map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, Session{Id: sess.ID, CreatedAt: sess.Created})
}

func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(sessionFrom(r).ID); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toImagesState(sessionFrom(r).Search().Snapshot()))
}

func (s *Server) PutQuery(w http.ResponseWriter, r *http.Request) {
	var payload QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	orch := sessionFrom(r).Search()
	orch.SetQuery(payload.Query)
	writeJSON(w, http.StatusAccepted, toImagesState(orch.Snapshot()))
}

func (s *Server) ClearSearch(w http.ResponseWriter, r *http.Request) {
	orch := sessionFrom(r).Search()
	orch.Clear()
	writeJSON(w, http.StatusOK, toImagesState(orch.Snapshot()))
}

func (s *Server) ChangePage(w http.ResponseWriter, r *http.Request) {
	var page int
	if err := runtime.BindQueryParameter("form", true, true, "page", r.URL.Query(), &page); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid page", map[string]any{"error": err.Error()})
		return
	}
	if page < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", "page must be at least 1", nil)
		return
	}
	orch := sessionFrom(r).Search()
	if err := orch.Page(page); err != nil {
		if errors.Is(err, search.ErrNotSearching) {
			writeError(w, http.StatusConflict, "not_searching", "no active search to page through", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "could not change page", map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, toImagesState(orch.Snapshot()))
}

func (s *Server) GetDesign(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toDesignState(sessionFrom(r).DesignStatus()))
}

func (s *Server) PutDesign(w http.ResponseWriter, r *http.Request) {
	var payload DesignUpdate
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	st, err := sessionFrom(r).SetDesign(r.Context(), studio.DesignInput{
		ImageID: payload.ImageId,
		Name:    payload.Name,
		Font:    payload.Font,
		Color:   payload.Color,
	})
	if err != nil {
		switch {
		case errors.Is(err, studio.ErrUnknownImage):
			writeError(w, http.StatusUnprocessableEntity, "unknown_image", err.Error(), nil)
		case errors.Is(err, studio.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal", "could not update design", map[string]any{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, toDesignState(st))
}

func (s *Server) GetCardPreview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	frame, ok := sess.Preview().Frame()
	if !ok {
		st := sess.DesignStatus()
		writeError(w, http.StatusNotFound, "no_preview", "no card rendered yet", map[string]any{"prompt": st.Prompt})
		return
	}
	data, err := card.EncodePNG(frame)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "could not encode preview", map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) ExportCard(w http.ResponseWriter, r *http.Request) {
	var wait *bool
	if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &wait); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid wait flag", map[string]any{"error": err.Error()})
		return
	}
	preview := sessionFrom(r).Preview()
	if wait != nil && *wait {
		if err := preview.Wait(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "timeout", "render did not finish", nil)
			return
		}
	}
	exp, err := preview.Export()
	if err != nil {
		switch {
		case errors.Is(err, card.ErrNoDesign):
			writeError(w, http.StatusConflict, "no_design", "no card to export", nil)
		case errors.Is(err, card.ErrNotReady):
			writeError(w, http.StatusConflict, "not_ready", "card is still rendering", nil)
		default:
			writeError(w, http.StatusInternalServerError, "export_failed", err.Error(), nil)
		}
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(exp.Data)
}

func toImagesState(st search.State) ImagesState {
	out := ImagesState{
		Mode:       string(st.View.Mode()),
		Query:      st.Query(),
		Input:      st.Input,
		Loading:    st.Loading,
		Images:     st.View.Images(),
		Pagination: st.Pagination(),
	}
	if out.Images == nil {
		out.Images = []catalog.Image{}
	}
	if st.Err != nil {
		msg := st.Err.Error()
		out.Error = &msg
	}
	return out
}

func toDesignState(st studio.DesignStatus) DesignState {
	out := DesignState{
		HasDesign: st.HasDesign,
		Name:      st.Name,
		Font:      string(st.Font),
		Color:     string(st.Color),
		Rendering: st.Preview.Rendering,
		Ready:     st.Preview.Ready,
	}
	if st.Prompt != "" {
		p := st.Prompt
		out.Prompt = &p
	}
	if st.ImageID != "" {
		id := st.ImageID
		out.ImageId = &id
	}
	if st.Preview.Err != nil {
		msg := st.Preview.Err.Error()
		out.Error = &msg
	}
	return out
}
