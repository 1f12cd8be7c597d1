// Package httpapi is a small REST surface over the analyzer: health check,
// single/batch analysis, and Prometheus metrics. Grounded on the teacher's
// net/http + ServeMux + middleware-chain JSON-RPC server, generalized from a
// single dispatch endpoint to a handful of REST routes.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/delegatescan/delegatescan/core/report"
	"github.com/delegatescan/delegatescan/fetch"
	"github.com/delegatescan/delegatescan/log"
)

// maxBodyBytes caps request bodies accepted by /analyze and /analyze/batch.
const maxBodyBytes = 1 << 20 // 1 MiB

// Server is the HTTP surface over the analyzer.
type Server struct {
	mux     *http.ServeMux
	metrics *Metrics
	log     *log.Logger
}

// NewServer builds a Server with all routes registered. CORS and per-IP rate
// limiting wrap the /analyze routes; Handler adds request logging around
// every route. Metrics are recorded inside the analyze handlers.
func NewServer() *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		metrics: NewMetrics(),
		log:     log.Default().Module("httpapi"),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/analyze", s.withAnalyzeMiddleware(http.HandlerFunc(s.handleAnalyze)))
	s.mux.Handle("/analyze/batch", s.withAnalyzeMiddleware(http.HandlerFunc(s.handleAnalyzeBatch)))
	s.mux.Handle("/metrics", s.metrics.Handler())
	return s
}

// Handler returns the composed HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return MiddlewareChain(s.mux, LoggingMiddleware(s.log))
}

func (s *Server) withAnalyzeMiddleware(h http.Handler) http.Handler {
	return MiddlewareChain(h,
		CORSMiddleware(DefaultCORSConfig()),
		RateLimitMiddleware(DefaultRateLimitConfig()),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analyzeRequest is the accepted body shape for /analyze: either an
// already-known bytecode blob, or an on-chain address to fetch it from.
type analyzeRequest struct {
	Bytecode string `json:"bytecode"`
	Address  string `json:"address"`
	Network  string `json:"network"`
	RPCURL   string `json:"rpcUrl"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req analyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	timer := s.metrics.StartAnalyze()
	rep, err := s.analyzeOne(r.Context(), req)
	timer.ObserveError(err)
	if err != nil {
		if isClientError(err) {
			writeError(w, http.StatusBadRequest, "invalid request", err.Error())
			return
		}
		s.log.Error("analysis failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Analysis failed", "")
		return
	}
	timer.ObserveReport(rep)

	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleAnalyzeBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var reqs []analyzeRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	reports := make([]*report.Report, 0, len(reqs))
	for _, req := range reqs {
		timer := s.metrics.StartAnalyze()
		rep, err := s.analyzeOne(r.Context(), req)
		timer.ObserveError(err)
		if err != nil {
			if isClientError(err) {
				writeError(w, http.StatusBadRequest, "invalid request", err.Error())
				return
			}
			s.log.Error("batch analysis failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Analysis failed", "")
			return
		}
		timer.ObserveReport(rep)
		reports = append(reports, rep)
	}

	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) analyzeOne(ctx context.Context, req analyzeRequest) (*report.Report, error) {
	bytecode := req.Bytecode
	if bytecode == "" {
		code, err := fetch.Code(ctx, req.Address, fetch.Options{Network: req.Network, RPCURL: req.RPCURL})
		if err != nil {
			return nil, err
		}
		bytecode = code
	}
	return report.Build(ctx, bytecode, report.Options{
		ContractAddress: req.Address,
		Network:         req.Network,
		UseCFG:          true,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, map[string]string{"error": message, "details": details})
}

func isClientError(err error) bool {
	return isInvalidRequest(err) || isNoCode(err) || isNoRPCConfigured(err) || isMalformedHex(err)
}
