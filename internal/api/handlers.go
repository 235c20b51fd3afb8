package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/domain-lead-pipeline/internal/automation"
	"github.com/sells-group/domain-lead-pipeline/internal/export"
	"github.com/sells-group/domain-lead-pipeline/internal/model"
	"github.com/sells-group/domain-lead-pipeline/internal/store"
)

const (
	defaultLeadLimit = 50
	maxLeadLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.metrics.Collect(r.Context())
	if err != nil {
		zap.L().Error("metrics collection failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "metrics collection failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	f := store.JobFilter{
		JobName: r.URL.Query().Get("job_name"),
		Limit:   intParam(r, "limit", 50),
	}
	runs, err := s.store.ListJobRuns(r.Context(), f)
	if err != nil {
		zap.L().Error("job listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "job listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": runs})
}

// leadItem is one row of the dashboard lead table.
type leadItem struct {
	model.Business
	City     string                  `json:"city,omitempty"`
	Country  string                  `json:"country,omitempty"`
	Contacts []model.BusinessContact `json:"contacts,omitempty"`
	Exported bool                    `json:"exported"`
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := store.LeadFilter{
		Category:             q.Get("category"),
		City:                 q.Get("city"),
		Platform:             q.Get("platform"),
		RequireContact:       boolParam(r, "require_contact"),
		RequireUnhosted:      boolParam(r, "require_unhosted"),
		RequireQualification: boolParam(r, "require_qualification"),
		Limit:                intParam(r, "limit", defaultLeadLimit),
		Offset:               intParam(r, "offset", 0),
	}
	if f.Limit > maxLeadLimit {
		f.Limit = maxLeadLimit
	}
	if raw := q.Get("min_score"); raw != "" {
		min, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		f.MinScore = &min
	}

	ctx := r.Context()
	total, err := s.store.CountLeads(ctx, f)
	if err != nil {
		zap.L().Error("lead count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lead query failed")
		return
	}
	rows, err := s.store.ListLeads(ctx, f)
	if err != nil {
		zap.L().Error("lead query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lead query failed")
		return
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.Business.ID
	}
	contacts, err := s.store.ContactsForBusinesses(ctx, ids)
	if err != nil {
		zap.L().Error("contact lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lead query failed")
		return
	}
	exported := map[uuid.UUID]bool{}
	if f.Platform != "" {
		exported, err = s.store.ExportedBusinessIDs(ctx, f.Platform, ids)
		if err != nil {
			zap.L().Error("export flag lookup failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "lead query failed")
			return
		}
	}

	items := make([]leadItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, leadItem{
			Business: row.Business,
			City:     row.CityName,
			Country:  row.Country,
			Contacts: contacts[row.Business.ID],
			Exported: exported[row.Business.ID],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"limit":  f.Limit,
		"offset": f.Offset,
		"items":  items,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		zap.L().Error("category listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "category listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.store.ListCityNames(r.Context(), intParam(r, "limit", 500))
	if err != nil {
		zap.L().Error("city listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "city listing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cities": cities})
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.controller.RunNow(r.Context())
	if errors.Is(err, automation.ErrBusy) {
		writeError(w, http.StatusConflict, "a pipeline cycle is already running")
		return
	}
	if err != nil {
		zap.L().Error("pipeline run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "pipeline run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBusinessScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Limit int  `json:"limit"`
		Force bool `json:"force"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = 500
	}

	scored, err := s.scorer.RunBatch(r.Context(), req.Limit, req.Force)
	if err != nil {
		zap.L().Error("scoring run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring run failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"scored": scored})
}

func (s *Server) handleBusinessExport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Platform             string  `json:"platform"`
		MinScore             float64 `json:"min_score"`
		Limit                int     `json:"limit"`
		RequireContact       bool    `json:"require_contact"`
		RequireUnhosted      bool    `json:"require_unhosted"`
		RequireQualification bool    `json:"require_qualification"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Platform == "" {
		writeError(w, http.StatusBadRequest, "platform is required")
		return
	}

	result, err := s.exporter.Export(r.Context(), export.Options{
		Platform:             req.Platform,
		MinScore:             req.MinScore,
		Limit:                req.Limit,
		RequireContact:       req.RequireContact,
		RequireUnhosted:      req.RequireUnhosted,
		RequireQualification: req.RequireQualification,
	})
	if err != nil {
		zap.L().Error("export run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAutomationStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleAutomationStart(w http.ResponseWriter, r *http.Request) {
	s.controller.Start()
	s.controller.StartVerification()
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleAutomationStop(w http.ResponseWriter, r *http.Request) {
	s.controller.Stop()
	s.controller.StopVerification()
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleAutomationRunNow(w http.ResponseWriter, r *http.Request) {
	s.handlePipelineRun(w, r)
}

func (s *Server) handleDailyTargetNow(w http.ResponseWriter, r *http.Request) {
	result, err := s.controller.RunDailyTargetNow(r.Context())
	if errors.Is(err, automation.ErrBusy) {
		writeError(w, http.StatusConflict, "a pipeline cycle is already running")
		return
	}
	if err != nil {
		zap.L().Error("daily target run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "daily target run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch automation.SettingsPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings patch")
		return
	}
	writeJSON(w, http.StatusOK, s.controller.UpdateSettings(patch))
}

// exportFile is one CSV listed under the export directory.
type exportFile struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleExportFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJSON(w, http.StatusOK, map[string]any{"files": []exportFile{}})
			return
		}
		zap.L().Error("export dir listing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export listing failed")
		return
	}

	files := make([]exportFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, exportFile{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (s *Server) handleExportDownload(w http.ResponseWriter, r *http.Request) {
	name := sanitizeFilename(chi.URLParam(r, "filename"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(s.exportDir, name)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	http.ServeFile(w, r, path)
}

// sanitizeFilename accepts only a bare CSV basename. Anything carrying a
// path separator or dot-dot is rejected outright.
func sanitizeFilename(name string) string {
	if name == "" || name != filepath.Base(name) {
		return ""
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return ""
	}
	if !strings.HasSuffix(name, ".csv") {
		return ""
	}
	return name
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func intParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func boolParam(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
