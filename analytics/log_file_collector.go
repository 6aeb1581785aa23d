package analytics

import (
	"os"

	"github.com/mohitkumar/flowcanvas/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogFileDataCollector struct {
	fileName string
	logger   *zap.Logger
}

func NewLogFileDataCollector(fileName string) (*LogFileDataCollector, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	encoderConfig.CallerKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)
	logFile, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), zapcore.InfoLevel)
	return &LogFileDataCollector{
		fileName: fileName,
		logger:   zap.New(core),
	}, nil
}

func (lc *LogFileDataCollector) OnNodeAdded(workflowId string, node *model.Node) {
	lc.logger.Info("node_added", zap.String("workflow", workflowId), zap.Int64("node", node.Id), zap.String("type", node.Type), zap.Int64p("upstream", node.UpstreamId), zap.Intp("branchIndex", node.BranchIndex))
}

func (lc *LogFileDataCollector) OnNodeRemoved(workflowId string, removed []int64) {
	lc.logger.Info("node_removed", zap.String("workflow", workflowId), zap.Int64s("nodes", removed))
}

func (lc *LogFileDataCollector) OnNodeUpdated(workflowId string, node *model.Node) {
	lc.logger.Info("node_updated", zap.String("workflow", workflowId), zap.Int64("node", node.Id), zap.String("type", node.Type), zap.Any("config", node.Config))
}

func (lc *LogFileDataCollector) Close() error {
	return lc.logger.Sync()
}
