// Package httpapi is the thin HTTP ingress: POST /upload,
// /generate-tests and /execute-tests. Routing and request/response
// shaping only; every real operation is delegated to the application
// services that implement it.
package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/devrickard/testcascade/internal/application"
	"github.com/devrickard/testcascade/internal/domain/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server wires the application ports into an HTTP ingress.
type Server struct {
	openapi     application.OpenAPIIntake
	generation  application.GenerationClient
	extractor   application.TestCaseExtractor
	coordinator application.Coordinator
	uploadDir   string
}

// NewServer creates the thin HTTP API ingress.
func NewServer(
	openapi application.OpenAPIIntake,
	generation application.GenerationClient,
	extractor application.TestCaseExtractor,
	coordinator application.Coordinator,
	uploadDir string,
) *Server {
	return &Server{
		openapi:     openapi,
		generation:  generation,
		extractor:   extractor,
		coordinator: coordinator,
		uploadDir:   uploadDir,
	}
}

// Handler builds the mux for this server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/generate-tests", s.handleGenerateTests)
	mux.HandleFunc("/execute-tests", s.handleExecuteTests)
	return mux
}

// handleUpload accepts one file (multipart "file" field, or the raw
// request body), saves it under the upload directory with a randomized
// name plus a .json suffix, and returns the stored path together with
// the document's endpoint descriptors.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := readUpload(r)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return
	}

	endpoints, err := s.openapi.Endpoints(r.Context(), data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}
	storedPath := filepath.Join(s.uploadDir, uuid.NewString()+".json")
	if err := os.WriteFile(storedPath, data, 0644); err != nil {
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResult{
		StoredPath: storedPath,
		Endpoints:  endpoints,
	})
}

func readUpload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, 16*1024*1024))
	}
	return io.ReadAll(io.LimitReader(r.Body, 16*1024*1024))
}

type generateTestsRequest struct {
	SwaggerFilePath   string   `json:"swaggerFilePath"`
	SelectedEndpoints []string `json:"selectedEndpoints"`
}

func (s *Server) handleGenerateTests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.generation == nil {
		http.Error(w, "no generation backend configured", http.StatusServiceUnavailable)
		return
	}

	var req generateTestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	document, err := os.ReadFile(req.SwaggerFilePath)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read swagger file: %v", err), http.StatusBadRequest)
		return
	}

	input := string(document)
	if len(req.SelectedEndpoints) > 0 {
		input += "\n" + strings.Join(req.SelectedEndpoints, "\n")
	}

	text, err := s.generation.GenerateText(r.Context(), input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	tests := s.extractor.Extract(text)
	writeJSON(w, http.StatusOK, tests)
}

type executeTestsRequest struct {
	BaseURL         string            `json:"baseUrl"`
	GlobalHeaders   map[string]string `json:"globalHeaders"`
	GlobalVariables map[string]string `json:"globalVariables"`
	TestCases       []models.TestCase `json:"testCases"`
	FailFast        bool              `json:"failFast"`
}

func (s *Server) handleExecuteTests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req executeTestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	run := s.coordinator.Execute(r.Context(), req.TestCases, req.BaseURL, req.GlobalHeaders, req.GlobalVariables, models.RunOptions{FailFast: req.FailFast})
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
