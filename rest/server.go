package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcanvas/flow"
	"github.com/mohitkumar/flowcanvas/logger"
	"go.opencensus.io/plugin/ochttp"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	http.Server
	Port     int
	service  *flow.Service
	validate *validator.Validate
}

func NewServer(httpPort int, service *flow.Service) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		Port:     httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/instructions", s.HandleListInstructions).Methods(http.MethodGet)

	router.HandleFunc("/workflows", s.HandleCreateWorkflow).Methods(http.MethodPost)
	router.HandleFunc("/workflows", s.HandleListWorkflows).Methods(http.MethodGet)
	router.HandleFunc("/workflows/{id}", s.HandleGetWorkflow).Methods(http.MethodGet)
	router.HandleFunc("/workflows/{id}", s.HandleDeleteWorkflow).Methods(http.MethodDelete)
	router.HandleFunc("/workflows/{id}/canvas", s.HandleGetCanvas).Methods(http.MethodGet)
	router.HandleFunc("/workflows/{id}/integrity", s.HandleCheckIntegrity).Methods(http.MethodGet)

	router.HandleFunc("/workflows/{id}/nodes", s.HandleAddNode).Methods(http.MethodPost)
	router.HandleFunc("/workflows/{id}/nodes/{nodeId}/config", s.HandleUpdateNodeConfig).Methods(http.MethodPut)
	router.HandleFunc("/workflows/{id}/nodes/{nodeId}", s.HandleRemoveNode).Methods(http.MethodDelete)

	router.Use(loggingMiddleware)
	s.Handler = &ochttp.Handler{Handler: router}
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server", zap.Error(err))
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI, zap.String("method", r.Method))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return s.validate.Struct(v)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	respondWithJSON(w, http.StatusOK, message)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithStatusError answers with the HTTP status matching the gRPC code
// carried by err, if any.
func respondWithStatusError(w http.ResponseWriter, err error) {
	var se interface{ GRPCStatus() *status.Status }
	if !errors.As(err, &se) {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := se.GRPCStatus()
	respondWithError(w, httpStatus(st.Code()), st.Message())
}

func httpStatus(code codes.Code) int {
	switch code {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.AlreadyExists:
		return http.StatusConflict
	case codes.DataLoss:
		return http.StatusConflict
	case codes.DeadlineExceeded, codes.Canceled:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
