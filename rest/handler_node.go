package rest

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/flowcanvas/flow"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/model"
	"go.uber.org/zap"
)

type addNodeRequest struct {
	UpstreamId  *int64 `json:"upstreamId"`
	BranchIndex *int   `json:"branchIndex" validate:"omitempty,min=0"`
	Type        string `json:"type" validate:"required"`
	OptionKey   string `json:"optionKey"`
}

type updateConfigRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*flow.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, err := s.service.Session(r.Context(), id)
	if err != nil {
		logger.Info("workflow could not be opened", zap.String("workflow", id), zap.Error(err))
		respondWithStatusError(w, err)
		return nil, false
	}
	return sess, true
}

func nodeId(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["nodeId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "node id should be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) HandleAddNode(w http.ResponseWriter, r *http.Request) {
	var req addNodeRequest
	if err := s.decode(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	insert := flow.InsertRequest{
		BranchIndex: req.BranchIndex,
		Type:        req.Type,
		OptionKey:   req.OptionKey,
	}
	if req.UpstreamId != nil {
		insert.Upstream = &model.Node{Id: *req.UpstreamId}
	}
	node, err := sess.AddNode(r.Context(), insert)
	if err != nil {
		logger.Info("node was not added", zap.String("workflow", sess.WorkflowId()), zap.String("type", req.Type), zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, node)
}

func (s *Server) HandleUpdateNodeConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeId(w, r)
	if !ok {
		return
	}
	var req updateConfigRequest
	if err := s.decode(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	node, err := sess.UpdateNodeConfig(r.Context(), id, req.Config)
	if err != nil {
		logger.Info("node config was not updated", zap.String("workflow", sess.WorkflowId()), zap.Int64("node", id), zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, node)
}

func (s *Server) HandleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := nodeId(w, r)
	if !ok {
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	removed, err := sess.RemoveNode(r.Context(), id)
	if err != nil {
		logger.Info("node was not removed", zap.String("workflow", sess.WorkflowId()), zap.Int64("node", id), zap.Error(err))
		respondWithStatusError(w, err)
		return
	}
	respondOK(w, map[string]any{"removed": removed})
}
