package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/core"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/logging"
	"github.com/openfoodfoundation/openfoodnetwork-sub012/internal/web/templates"
)

// maxSettingsSize bounds the JSON body of review and save requests.
const maxSettingsSize = 1 << 20

var errNoFile = errors.New("no file provided")

// runRequest is the JSON body of review, save, stage and reset requests:
// the settings document plus the ids saved by earlier stages.
type runRequest struct {
	Settings *core.Settings
	Touched  core.TouchedIDs
}

// ====================================================================
// Uploads
// ====================================================================

// handleUpload stores a multipart file upload and returns its id.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	up, err := s.storeUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, up)
}

// handleUploadForm is handleUpload for the HTML form; it redirects to the
// review page.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	up, err := s.storeUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/imports/"+up.ID, http.StatusSeeOther)
}

func (s *Server) storeUpload(w http.ResponseWriter, r *http.Request) (core.Upload, error) {
	maxSize := s.cfg.Import.MaxFileSize
	// Leave room for the multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+maxSettingsSize)

	if err := r.ParseMultipartForm(maxSettingsSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return core.Upload{}, core.ErrFileTooLarge
		}
		return core.Upload{}, badRequest(fmt.Errorf("%w: %v", errNoFile, err))
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.Upload{}, badRequest(errNoFile)
	}
	defer file.Close()

	return s.service.StoreUpload(r.Context(), header.Filename, file)
}

// handleDiscard deletes a stored upload.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")
	if err := s.service.Discard(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ====================================================================
// Review
// ====================================================================

// handleReview validates an upload and returns every line's outcome.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	user, req, ok := s.runParams(w, r)
	if !ok {
		return
	}

	res, err := s.service.Review(r.Context(), chi.URLParam(r, "uploadID"), user, req.Settings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleExportReview downloads the review as a workbook. Settings come from
// the "settings" query parameter so the link works from a browser.
func (s *Server) handleExportReview(w http.ResponseWriter, r *http.Request) {
	user, settings, ok := s.queryParams(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "uploadID")

	var buf bytes.Buffer
	if err := s.service.ExportReview(r.Context(), id, user, settings, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="review-%s.xlsx"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("review download interrupted", "upload_id", id, "error", err)
	}
}

// handleReviewPage renders the review as HTML.
func (s *Server) handleReviewPage(w http.ResponseWriter, r *http.Request) {
	user, settings, ok := s.queryParams(w, r)
	if !ok {
		return
	}

	res, err := s.service.Review(r.Context(), chi.URLParam(r, "uploadID"), user, settings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReviewPage(s.reviewView(res)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render review page", "error", err)
	}
}

// handleUploadPage renders the upload form.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.UploadPage(s.cfg.Import.MaxFileSize).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render upload page", "error", err)
	}
}

func (s *Server) reviewView(res core.ReviewResult) templates.ReviewView {
	cols := core.AttributeColumns()
	v := templates.ReviewView{
		UploadID:  res.UploadID,
		Columns:   cols,
		Errors:    res.Errors,
		StageSize: s.cfg.Import.StageSize,
	}
	if res.Summary != nil {
		v.Classifications = res.Summary.Classifications
		v.Invalid = res.Summary.Invalid
		v.ResetCounts = res.Summary.ResetCounts
	}

	lines := make([]int, 0, len(res.Lines))
	for n := range res.Lines {
		lines = append(lines, n)
	}
	sort.Ints(lines)

	for _, n := range lines {
		lr := res.Lines[n]
		values := make([]string, len(cols))
		for i, c := range cols {
			values[i] = lr.Attributes[c]
		}
		fields := make([]string, 0, len(lr.Errors))
		for f := range lr.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		errs := make([]string, len(fields))
		for i, f := range fields {
			errs[i] = f + ": " + lr.Errors[f]
		}
		v.Lines = append(v.Lines, templates.ReviewLine{
			Line:        n,
			Values:      values,
			ValidatesAs: lr.ValidatesAs,
			Errors:      errs,
		})
	}
	return v
}

// ====================================================================
// Save
// ====================================================================

// handleSave imports every line of an upload.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	user, req, ok := s.runParams(w, r)
	if !ok {
		return
	}

	res, err := s.service.Save(r.Context(), chi.URLParam(r, "uploadID"), user, req.Settings)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleSaveStage imports lines start..end, carrying touched_ids from
// earlier stages.
func (s *Server) handleSaveStage(w http.ResponseWriter, r *http.Request) {
	user, req, ok := s.runParams(w, r)
	if !ok {
		return
	}

	start, end := req.Settings.Start, req.Settings.End
	if start < 2 || end < start {
		s.respondError(w, r, badRequest(fmt.Errorf("invalid stage range %d-%d", start, end)))
		return
	}

	res, err := s.service.SaveStage(r.Context(), chi.URLParam(r, "uploadID"), user, req.Settings, start, end, req.Touched)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// handleResetAbsent finishes a staged import.
func (s *Server) handleResetAbsent(w http.ResponseWriter, r *http.Request) {
	user, req, ok := s.runParams(w, r)
	if !ok {
		return
	}

	res, err := s.service.ResetAbsent(r.Context(), chi.URLParam(r, "uploadID"), user, req.Settings, req.Touched)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// ====================================================================
// Status
// ====================================================================

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus reports run slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.LimiterStatus())
}

// ====================================================================
// Request parsing
// ====================================================================

// runParams resolves the acting user and decodes the JSON body.
// It writes the error response itself and reports false on failure.
func (s *Server) runParams(w http.ResponseWriter, r *http.Request) (core.User, runRequest, bool) {
	user, err := actingUser(r)
	if err != nil {
		s.respondError(w, r, err)
		return core.User{}, runRequest{}, false
	}
	req, err := decodeRunRequest(io.LimitReader(r.Body, maxSettingsSize))
	if err != nil {
		s.respondError(w, r, badRequest(err))
		return core.User{}, runRequest{}, false
	}
	return user, req, true
}

// queryParams resolves the acting user and the "settings" query parameter.
func (s *Server) queryParams(w http.ResponseWriter, r *http.Request) (core.User, *core.Settings, bool) {
	user, err := actingUser(r)
	if err != nil {
		s.respondError(w, r, err)
		return core.User{}, nil, false
	}
	settings, err := core.ParseSettings(r.URL.Query().Get("settings"))
	if err != nil {
		s.respondError(w, r, badRequest(err))
		return core.User{}, nil, false
	}
	return user, settings, true
}

func decodeRunRequest(body io.Reader) (runRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return runRequest{}, fmt.Errorf("read import settings: %w", err)
	}
	settings, err := core.ParseSettings(string(data))
	if err != nil {
		return runRequest{}, err
	}
	req := runRequest{Settings: settings}
	if len(bytes.TrimSpace(data)) > 0 {
		var ids struct {
			Touched    *core.TouchedIDs `json:"touched_ids"`
			UpdatedIDs []int64          `json:"updated_ids"`
		}
		if err := json.Unmarshal(data, &ids); err != nil {
			return runRequest{}, fmt.Errorf("decode import settings: %w", err)
		}
		// A bare updated_ids list does not say which ids are overrides.
		if ids.Touched != nil {
			req.Touched = *ids.Touched
		} else if len(ids.UpdatedIDs) > 0 {
			req.Touched = core.UntaggedIDs(ids.UpdatedIDs)
		}
	}
	return req, nil
}
