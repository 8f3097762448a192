// Package api exposes the assistant over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/CHULJU-KIM/Excelly/internal/assistant"
	apperrors "github.com/CHULJU-KIM/Excelly/internal/errors"
	"github.com/CHULJU-KIM/Excelly/internal/sheet"
)

type Server struct {
	router    *chi.Mux
	addr      string
	assistant *assistant.Assistant
	maxUpload int64
	log       *slog.Logger
}

// NewServer wires the HTTP routes over the assistant.
func NewServer(addr string, a *assistant.Assistant, maxUpload int64, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		addr:      addr,
		assistant: a,
		maxUpload: maxUpload,
		log:       log,
	}

	router.Get("/health", s.health)
	router.Route("/api/chat", func(r chi.Router) {
		r.Post("/ask", s.ask)
		r.Post("/analyze-sheets", s.analyzeSheets)
		r.Post("/generate-file", s.generateFile)
		r.Get("/download/{id}", s.download)
		r.Get("/status", s.status)
		r.Get("/sessions", s.sessions)
		r.Get("/history/{id}", s.history)
		r.Delete("/sessions/all", s.deleteAllSessions)
		r.Delete("/sessions/{id}", s.deleteSession)
		r.Delete("/sessions/{id}/messages", s.clearMessages)
	})

	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on the configured address.
func (s *Server) Start() error {
	s.log.Info("API server starting", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st, err := s.assistant.Status()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ask handles one chat turn. Multipart form fields: question (required),
// session_id, selected_sheet, is_feedback, image (optional screenshot).
func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, apperrors.User(apperrors.CodeFileTooLarge, "요청이 너무 큽니다"))
		return
	}

	req := &assistant.AskRequest{
		SessionID:     r.FormValue("session_id"),
		Question:      r.FormValue("question"),
		SelectedSheet: r.FormValue("selected_sheet"),
		IsFeedback:    r.FormValue("is_feedback") == "true",
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data, err := readUpload(file, s.maxUpload)
		if err != nil {
			s.writeError(w, err)
			return
		}
		req.Image = data
		req.ImageMIME = header.Header.Get("Content-Type")
	}

	resp, err := s.assistant.Ask(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// analyzeSheets ingests an uploaded spreadsheet and returns its sheet
// summary. Multipart form fields: file (required), session_id.
func (s *Server) analyzeSheets(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, apperrors.User(apperrors.CodeFileTooLarge, "요청이 너무 큽니다"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, apperrors.User(apperrors.CodeFileFormatUnsupported, "파일이 필요합니다"))
		return
	}
	defer file.Close()

	data, err := readUpload(file, s.maxUpload)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id, analysis, err := s.assistant.AnalyzeSheets(r.FormValue("session_id"), header.Filename, data)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"filename":   analysis.Filename,
		"sheets":     analysis.Sheets,
	})
}

// generateFile builds a downloadable workbook from the session's cached
// upload. Form fields: session_id (required), ai_response.
func (s *Server) generateFile(w http.ResponseWriter, r *http.Request) {
	gen, err := s.assistant.GenerateFile(r.FormValue("session_id"), r.FormValue("ai_response"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, err := s.assistant.DownloadPath(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sheet.Filename(id)+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) sessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.assistant.Sessions()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.assistant.History(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.DeleteSession(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) deleteAllSessions(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.DeleteAllSessions(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) clearMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.assistant.ClearMessages(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// writeError maps AppError codes to HTTP statuses. Unknown errors are
// logged and surfaced as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		s.log.Error("unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal error",
			"code":  "INTERNAL",
		})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case apperrors.CodeSessionNotFound, apperrors.CodeSheetNotFound,
		apperrors.CodeFileNotFound:
		status = http.StatusNotFound
	case apperrors.CodeClassificationInputInvalid, apperrors.CodeFileFormatUnsupported:
		status = http.StatusBadRequest
	case apperrors.CodeFileTooLarge:
		status = http.StatusRequestEntityTooLarge
	case apperrors.CodeProviderUnavailable, apperrors.CodeProviderTimeout:
		status = http.StatusServiceUnavailable
	case apperrors.CodeProviderAuthFailed:
		status = http.StatusBadGateway
	}

	if status >= 500 {
		s.log.Error("request failed", "code", appErr.Code, "error", err)
	}
	writeJSON(w, status, map[string]string{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

func readUpload(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeFileFormatUnsupported,
			"업로드를 읽을 수 없습니다", apperrors.CategoryUser)
	}
	if int64(len(data)) > max {
		return nil, apperrors.User(apperrors.CodeFileTooLarge, "파일이 너무 큽니다")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
