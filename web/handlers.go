package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mhpenta/magicimage/studio"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", s.ctrl.View()); err != nil {
		s.logger.Error("failed to execute template", "error", err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.View())
}

// handleGenerate sets the prompt and submits. A "key" field means the form was
// sent from the prompt field's keydown handler.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	s.ctrl.SetPrompt(r.PostFormValue("prompt"))

	// A started generation is not cancelled when the client goes away.
	ctx := context.WithoutCancel(r.Context())
	if key := r.PostFormValue("key"); key != "" {
		shift, _ := strconv.ParseBool(r.PostFormValue("shift"))
		s.ctrl.HandleKey(ctx, studio.KeyEvent{Key: key, Shift: shift})
	} else {
		s.ctrl.Submit(ctx)
	}

	s.respond(w, r)
}

func (s *Server) handleClearPrompt(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearPrompt()
	s.respond(w, r)
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "missing image file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if err := s.ctrl.AttachImage(studio.File{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Content:  file,
	}); err != nil {
		s.logger.Info("attachment rejected",
			"name", header.Filename,
			"error", err.Error(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	}

	s.respond(w, r)
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	s.ctrl.RemoveImage()
	s.respond(w, r)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Reset()
	s.respond(w, r)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	d, ok := s.ctrl.DownloadResult()
	if !ok {
		http.Error(w, "no result to download", http.StatusNotFound)
		return
	}

	if s.store != nil {
		url, err := s.store.SaveFile(r.Context(), d.Data, d.Filename, d.MIMEType)
		if err != nil {
			s.logger.Error("failed to archive download", "filename", d.Filename, "error", err.Error())
		} else {
			s.logger.Info("download archived", "filename", d.Filename, "url", url)
		}
	}

	w.Header().Set("Content-Type", d.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	_, _ = w.Write(d.Data)
}

// respond answers a form post: JSON state for script clients, otherwise a
// redirect back to the page, which renders an empty file input.
func (s *Server) respond(w http.ResponseWriter, r *http.Request) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, s.ctrl.View())
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
