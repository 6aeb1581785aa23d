package api_v1

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

func localizedStatus(code codes.Code, msg string) *status.Status {
	st := status.New(code, msg)
	d := &errdetails.LocalizedMessage{
		Locale:  "en-US",
		Message: msg,
	}
	std, err := st.WithDetails(d)
	if err != nil {
		return st
	}
	return std
}

type InstructionNotFoundError struct {
	Type string
}

func (e InstructionNotFoundError) GRPCStatus() *status.Status {
	return localizedStatus(codes.NotFound, fmt.Sprintf("instruction %q is not registered", e.Type))
}

func (e InstructionNotFoundError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type InvalidOptionError struct {
	Type      string
	OptionKey string
}

func (e InvalidOptionError) GRPCStatus() *status.Status {
	return localizedStatus(codes.InvalidArgument, fmt.Sprintf("instruction %q has no option %q", e.Type, e.OptionKey))
}

func (e InvalidOptionError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type InvalidBranchError struct {
	Reason string
}

func (e InvalidBranchError) GRPCStatus() *status.Status {
	return localizedStatus(codes.InvalidArgument, fmt.Sprintf("invalid branch: %s", e.Reason))
}

func (e InvalidBranchError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type InvalidConfigError struct {
	Type   string
	Reason string
}

func (e InvalidConfigError) GRPCStatus() *status.Status {
	return localizedStatus(codes.InvalidArgument, fmt.Sprintf("invalid config for instruction %q: %s", e.Type, e.Reason))
}

func (e InvalidConfigError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type NodeNotFoundError struct {
	WorkflowId string
	NodeId     int64
}

func (e NodeNotFoundError) GRPCStatus() *status.Status {
	return localizedStatus(codes.NotFound, fmt.Sprintf("node %d not found in workflow %s", e.NodeId, e.WorkflowId))
}

func (e NodeNotFoundError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type WorkflowNotFoundError struct {
	WorkflowId string
}

func (e WorkflowNotFoundError) GRPCStatus() *status.Status {
	return localizedStatus(codes.NotFound, fmt.Sprintf("workflow %s not found", e.WorkflowId))
}

func (e WorkflowNotFoundError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) GRPCStatus() *status.Status {
	msg := "error in underline storage layer"
	if len(e.Message) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	return localizedStatus(codes.Internal, msg)
}

func (e StorageLayerError) Error() string {
	return e.GRPCStatus().Err().Error()
}

// CycleDetectedError is returned by a traversal that meets the same node twice.
type CycleDetectedError struct {
	NodeId int64
}

func (e CycleDetectedError) GRPCStatus() *status.Status {
	return localizedStatus(codes.DataLoss, fmt.Sprintf("cycle detected at node %d", e.NodeId))
}

func (e CycleDetectedError) Error() string {
	return e.GRPCStatus().Err().Error()
}

type IntegrityError struct {
	NodeId int64
	Reason string
}

func (e IntegrityError) GRPCStatus() *status.Status {
	return localizedStatus(codes.DataLoss, fmt.Sprintf("node %d: %s", e.NodeId, e.Reason))
}

func (e IntegrityError) Error() string {
	return e.GRPCStatus().Err().Error()
}
