// Package api provides the HTTP server and handlers.
package api

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JerrySMith13/portablemedia/internal/filemap"
	"github.com/JerrySMith13/portablemedia/internal/index"
	"github.com/JerrySMith13/portablemedia/internal/logging"
	"github.com/JerrySMith13/portablemedia/internal/metrics"
)

// Pool gzip writers to reduce allocations on the tree endpoint.
var gzipPool = sync.Pool{
	New: func() any { return gzip.NewWriter(nil) },
}

// TreeNode is the JSON rendering of one snapshot entry.
type TreeNode struct {
	Name     string               `json:"name"`
	Size     int64                `json:"size"`
	Children map[string]*TreeNode `json:"children,omitempty"`
}

// TreeResponse wraps the rendered snapshot.
type TreeResponse struct {
	Root *TreeNode `json:"root"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// Server serves the indexed media root over HTTP.
type Server struct {
	files *filemap.FileMap
}

// NewServer creates a new server.
func NewServer(files *filemap.FileMap) *Server {
	return &Server{files: files}
}

// Handler returns the server's handler with logging and metrics
// middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tree", s.handleTree)
	mux.HandleFunc("GET /api/v1/content/{path...}", s.handleContent)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logging.Middleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ─── Tree ───────────────────────────────────────────────────────────────────

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	snap := s.files.Snapshot()
	resp := TreeResponse{Root: renderTree(snap, index.RootID)}

	w.Header().Set("Content-Type", "application/json")
	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gw := gzipPool.Get().(*gzip.Writer)
		gw.Reset(w)
		json.NewEncoder(gw).Encode(resp)
		gw.Close()
		gzipPool.Put(gw)
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func renderTree(snap *index.Snapshot, id index.NodeID) *TreeNode {
	n := snap.Node(id)
	out := &TreeNode{Name: n.Name, Size: n.Size}
	if n.Children == nil {
		return out
	}
	out.Children = make(map[string]*TreeNode, len(n.Children))
	for name, childID := range n.Children {
		out.Children[name] = renderTree(snap, childID)
	}
	return out
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// ─── Content ────────────────────────────────────────────────────────────────

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	pathParam := r.PathValue("path")
	if pathParam == "" {
		s.sendError(w, http.StatusBadRequest, "file path required")
		return
	}

	data, err := s.files.GetFile(r.Context(), pathParam)
	if err != nil {
		metrics.RecordContentServed(0, false)
		switch {
		case errors.Is(err, index.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			s.sendError(w, http.StatusNotFound, "file not found: "+pathParam)
		case errors.Is(err, index.ErrNotDirectory):
			s.sendError(w, http.StatusBadRequest, err.Error())
		default:
			logging.Error("content read failed", zap.String("path", pathParam), zap.Error(err))
			s.sendError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	ct := mime.TypeByExtension(filepath.Ext(pathParam))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
	metrics.RecordContentServed(int64(len(data)), true)
}

func (s *Server) sendError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
		Code:  code,
	})
}
