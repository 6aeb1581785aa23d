package analytics

import (
	"github.com/mohitkumar/flowcanvas/model"
)

type DataCollectorConfig struct {
	FileName      string
	CollectorType DataCollectorType
}

type DataCollectorType string

const LOG_FILE_DATA_COLLECTOR DataCollectorType = "LOG_FILE_DATA_COLLECTOR"
const NOOP_DATA_COLLECTOR DataCollectorType = "NOOP_DATA_COLLECTOR"

// EditDataCollector receives every confirmed edit of a workflow.
type EditDataCollector interface {
	OnNodeAdded(workflowId string, node *model.Node)
	OnNodeRemoved(workflowId string, removed []int64)
	OnNodeUpdated(workflowId string, node *model.Node)
}

func NewDataCollector(config DataCollectorConfig) (EditDataCollector, error) {
	switch config.CollectorType {
	case LOG_FILE_DATA_COLLECTOR:
		c, err := NewLogFileDataCollector(config.FileName)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return noopCollector{}, nil
}

type noopCollector struct{}

func (noopCollector) OnNodeAdded(string, *model.Node)   {}
func (noopCollector) OnNodeRemoved(string, []int64)     {}
func (noopCollector) OnNodeUpdated(string, *model.Node) {}
