package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloudfiles/internal/db"
	"cloudfiles/internal/http/views"
	"cloudfiles/internal/models"
	"cloudfiles/internal/security"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// UploadTimeLayout matches the timestamps written by the upload form.
const UploadTimeLayout = "2006-01-02 15:04:05.000000"

// FileStore is the part of the Record Store the handlers use.
type FileStore interface {
	Upsert(ctx context.Context, filename, uploadTime, additionalInfo string) error
	List(ctx context.Context) ([]models.File, error)
	Get(ctx context.Context, filename string) (models.File, error)
	Rename(ctx context.Context, oldFilename, newFilename string) error
	Delete(ctx context.Context, filename string) error
}

type FileHandler struct {
	store    FileStore
	sessions *security.SessionStore
	log      *zap.Logger
	now      func() time.Time
}

func NewFileHandler(store FileStore, sessions *security.SessionStore, log *zap.Logger) *FileHandler {
	return &FileHandler{
		store:    store,
		sessions: sessions,
		log:      log,
		now:      time.Now,
	}
}

func (h *FileHandler) Index(w http.ResponseWriter, r *http.Request) {
	flashes := h.flashes(w, r)
	status := http.StatusOK

	files, err := h.store.List(r.Context())
	if err != nil {
		status = http.StatusInternalServerError
		flashes = append(flashes, security.Flash{
			Category: security.FlashDanger,
			Message:  "Could not load files",
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.RenderIndex(w, views.IndexPage{Files: files, Flashes: flashes}); err != nil {
		h.log.Error("render index", zap.Error(err))
	}
}

// Submit handles the index form. Unknown actions and missing fields are
// ignored; every outcome redirects back to the index.
func (h *FileHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	switch r.PostForm.Get("action") {
	case "upload":
		filename := r.PostForm.Get("filename")
		if filename == "" {
			break
		}
		uploadTime := h.now().Format(UploadTimeLayout)
		err := h.store.Upsert(ctx, filename, uploadTime, r.PostForm.Get("additional_info"))
		h.report(w, r, err,
			security.FlashSuccess, fmt.Sprintf("File %s uploaded successfully!", filename),
			fmt.Sprintf("Could not upload %s", filename))

	case "update":
		oldFilename := r.PostForm.Get("old_filename")
		newFilename := r.PostForm.Get("new_filename")
		if oldFilename == "" || newFilename == "" {
			break
		}
		h.rename(w, r, oldFilename, newFilename)

	case "delete":
		filename := r.PostForm.Get("filename")
		if filename == "" {
			break
		}
		h.delete(w, r, filename)
	}

	h.redirectHome(w, r)
}

func (h *FileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	page := views.EditPage{Filename: filename, Flashes: h.flashes(w, r)}

	file, err := h.store.Get(r.Context(), filename)
	switch {
	case err == nil:
		page.Exists = true
		page.UploadTime = file.UploadTime
	case !errors.Is(err, db.ErrNotFound):
		page.Flashes = append(page.Flashes, security.Flash{
			Category: security.FlashDanger,
			Message:  fmt.Sprintf("Could not load %s", filename),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderEdit(w, page); err != nil {
		h.log.Error("render edit", zap.Error(err))
	}
}

func (h *FileHandler) SubmitEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	filename := mux.Vars(r)["filename"]
	newFilename := r.PostForm.Get("new_filename")
	if filename != "" && newFilename != "" {
		h.rename(w, r, filename, newFilename)
	}
	h.redirectHome(w, r)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if filename := mux.Vars(r)["filename"]; filename != "" {
		h.delete(w, r, filename)
	}
	h.redirectHome(w, r)
}

func (h *FileHandler) rename(w http.ResponseWriter, r *http.Request, oldFilename, newFilename string) {
	err := h.store.Rename(r.Context(), oldFilename, newFilename)
	h.report(w, r, err,
		security.FlashSuccess, fmt.Sprintf("Filename updated from %s to %s", oldFilename, newFilename),
		fmt.Sprintf("Could not rename %s to %s", oldFilename, newFilename))
}

func (h *FileHandler) delete(w http.ResponseWriter, r *http.Request, filename string) {
	err := h.store.Delete(r.Context(), filename)
	h.report(w, r, err,
		security.FlashDanger, fmt.Sprintf("File %s deleted successfully!", filename),
		fmt.Sprintf("Could not delete %s", filename))
}

// report flashes the outcome of a store call. The store has already
// logged the failure, the request carries on either way.
func (h *FileHandler) report(w http.ResponseWriter, r *http.Request, err error, category, success, failure string) {
	if err != nil {
		h.addFlash(w, r, security.FlashDanger, failure)
		return
	}
	h.addFlash(w, r, category, success)
}

func (h *FileHandler) addFlash(w http.ResponseWriter, r *http.Request, category, message string) {
	if err := h.sessions.AddFlash(w, r, category, message); err != nil {
		h.log.Warn("save flash", zap.Error(err))
	}
}

func (h *FileHandler) flashes(w http.ResponseWriter, r *http.Request) []security.Flash {
	flashes, err := h.sessions.Flashes(w, r)
	if err != nil {
		h.log.Warn("read flashes", zap.Error(err))
	}
	return flashes
}

func (h *FileHandler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
