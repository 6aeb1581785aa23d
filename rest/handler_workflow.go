package rest

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-multierror"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/model"
	"go.uber.org/zap"
)

type canvasResponse struct {
	WorkflowId string       `json:"workflowId"`
	Entry      *int64       `json:"entry"`
	Steps      []graph.Step `json:"steps"`
}

type integrityResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

func (s *Server) HandleListInstructions(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.service.Registry().Groups())
}

func (s *Server) HandleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req model.WorkflowCreateRequest
	if err := s.decode(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	wf, err := s.service.CreateWorkflow(r.Context(), req)
	if err != nil {
		respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, wf)
}

func (s *Server) HandleListWorkflows(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListWorkflows(r.Context())
	if err != nil {
		logger.Error("error listing workflows", zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) HandleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, sess.Workflow())
}

func (s *Server) HandleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteWorkflow(r.Context(), id); err != nil {
		logger.Info("error deleting workflow", zap.String("workflow", id), zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}

func (s *Server) HandleGetCanvas(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	g := sess.Graph()
	steps, err := graph.Outline(g)
	if err != nil {
		logger.Error("error walking workflow", zap.String("workflow", sess.WorkflowId()), zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	res := canvasResponse{WorkflowId: sess.WorkflowId(), Steps: steps}
	if entry := g.Entry(); entry != nil {
		res.Entry = model.Int64(entry.Id)
	}
	respondWithJSON(w, http.StatusOK, res)
}

func (s *Server) HandleCheckIntegrity(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	res := integrityResponse{Valid: true, Problems: []string{}}
	if err := sess.CheckIntegrity(); err != nil {
		res.Valid = false
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				res.Problems = append(res.Problems, e.Error())
			}
		} else {
			res.Problems = append(res.Problems, err.Error())
		}
	}
	respondWithJSON(w, http.StatusOK, res)
}
