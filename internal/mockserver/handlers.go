package mockserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"pipeline-builder/internal/common/logging"
)

const (
	defaultTruncatedRows = 10
	defaultMaxCellChars  = 200
	maxUploadBytes       = 32 << 20
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.datasets))
	for _, d := range s.datasets {
		out = append(out, d.view(d.data.records(previewRows, 0)))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUploadDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	id, err := s.SeedDataset(header.Filename, file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.WithContext(r.Context()).Info("Dataset uploaded",
		logging.String("dataset_id", id),
		logging.String("filename", header.Filename))
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "dataset_id": id})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.findDataset(mux.Vars(r)["id"])
	if d == nil {
		writeDetail(w, http.StatusNotFound, "Dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, d.view(d.data.records(previewRows, 0)))
}

func (s *Server) handleTruncatedDataset(w http.ResponseWriter, r *http.Request) {
	rows, ok := intParam(w, r, "preview_rows", defaultTruncatedRows)
	if !ok {
		return
	}
	maxChars, ok := intParam(w, r, "max_cell_chars", defaultMaxCellChars)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := s.findDataset(mux.Vars(r)["id"])
	if d == nil {
		writeDetail(w, http.StatusNotFound, "Dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       d.id,
		"head":     d.data.records(rows, maxChars),
		"num_rows": len(d.data.rows),
	})
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, d := range s.datasets {
		if d.id == id {
			s.datasets = append(s.datasets[:i], s.datasets[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"message": fmt.Sprintf("Dataset %s deleted", id),
			})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Dataset not found")
}

func (s *Server) handleFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.functions)
}

type runBody struct {
	DatasetID   string                   `json:"dataset_id"`
	PathRequest []map[string]interface{} `json:"path_request"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var body runBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if len(body.PathRequest) == 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "path_request must contain at least one step")
		return
	}

	s.mu.Lock()
	if s.findDataset(body.DatasetID) == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Dataset not found")
		return
	}
	a := &analysis{
		id:        newID("an"),
		datasetID: body.DatasetID,
		status:    "queued",
		path:      body.PathRequest,
		log:       []map[string]interface{}{},
		createdAt: s.now().UTC(),
	}
	s.analyses = append(s.analyses, a)
	s.scheduleLocked(a.id)
	s.mu.Unlock()

	s.logger.WithContext(r.Context()).Info("Analysis queued",
		logging.String("analysis_id", a.id),
		logging.String("dataset_id", a.datasetID),
		logging.Int("steps", len(a.path)))
	writeJSON(w, http.StatusOK, map[string]string{"analysis_id": a.id})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(s.analyses))
	for _, a := range s.analyses {
		out = append(out, a.summary())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAnalysis(mux.Vars(r)["id"])
	if a == nil {
		writeDetail(w, http.StatusNotFound, "Analysis not found")
		return
	}
	writeJSON(w, http.StatusOK, a.detail())
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	nrows, ok := intParam(w, r, "nrows", 0)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		writeDetail(w, http.StatusUnprocessableEntity, "format must be csv or json")
		return
	}

	s.mu.Lock()
	a := s.findAnalysis(vars["id"])
	if a == nil {
		s.mu.Unlock()
		writeDetail(w, http.StatusNotFound, "Analysis not found")
		return
	}
	data, exists := a.artifacts[vars["key"]]
	s.mu.Unlock()
	if !exists {
		writeDetail(w, http.StatusNotFound, "Artifact not found")
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, data.records(nrows, 0))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", vars["key"]+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data.csvBytes())
}

type saveGraphBody struct {
	Name string          `json:"name"`
	Path json.RawMessage `json:"path"`
}

func (s *Server) handleSaveGraph(w http.ResponseWriter, r *http.Request) {
	var body saveGraphBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if len(body.Path) == 0 || string(body.Path) == "null" {
		body.Path = json.RawMessage("[]")
	}

	g := &graph{id: newID("graph"), name: body.Name, path: body.Path}
	s.mu.Lock()
	g.createdAt = s.now().UTC()
	s.graphs = append(s.graphs, g)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"graph_id": g.id})
}

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]map[string]interface{}, 0, len(s.graphs))
	for _, g := range s.graphs {
		if now.Sub(g.createdAt) < s.listLag {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":         g.id,
			"name":       g.name,
			"created_at": g.createdAt.Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.graphs {
		if g.id == id {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"id":         g.id,
				"name":       g.name,
				"path":       g.path,
				"created_at": g.createdAt.Format(timeLayout),
			})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Graph not found")
}

// intParam reads a non-negative integer query parameter, writing a 422 and
// returning false when it is malformed
func intParam(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("%s must be a non-negative integer", name))
		return 0, false
	}
	return n, true
}

// SeedDataset stores a CSV as a new dataset and returns its id
func (s *Server) SeedDataset(filename string, r io.Reader) (string, error) {
	data, err := parseCSV(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d := &dataset{
		id:        newID("ds"),
		filename:  filename,
		createdAt: s.now().UTC(),
		data:      data,
	}
	s.datasets = append(s.datasets, d)
	return d.id, nil
}

func (s *Server) findDataset(id string) *dataset {
	for _, d := range s.datasets {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (s *Server) findAnalysis(id string) *analysis {
	for _, a := range s.analyses {
		if a.id == id {
			return a
		}
	}
	return nil
}
