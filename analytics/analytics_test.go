package analytics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohitkumar/flowcanvas/model"
	"github.com/stretchr/testify/require"
)

func TestLogFileDataCollector(t *testing.T) {
	file := filepath.Join(t.TempDir(), "edits.log")
	c, err := NewDataCollector(DataCollectorConfig{FileName: file, CollectorType: LOG_FILE_DATA_COLLECTOR})
	require.NoError(t, err)

	c.OnNodeAdded("wf-1", &model.Node{Id: 3, Type: "end", UpstreamId: model.Int64(2)})
	c.OnNodeRemoved("wf-1", []int64{3})
	require.NoError(t, c.(*LogFileDataCollector).Close())

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	require.Equal(t, "node_added", events[0]["msg"])
	require.Equal(t, "wf-1", events[0]["workflow"])
	require.Equal(t, float64(2), events[0]["upstream"])
	require.Equal(t, "node_removed", events[1]["msg"])
	require.Equal(t, []any{float64(3)}, events[1]["nodes"])
}

func TestDefaultCollectorIsNoop(t *testing.T) {
	c, err := NewDataCollector(DataCollectorConfig{})
	require.NoError(t, err)
	c.OnNodeAdded("wf", &model.Node{Id: 1})
	c.OnNodeRemoved("wf", nil)
	c.OnNodeUpdated("wf", &model.Node{Id: 1})
}
