package integration

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/zoobzio/spanz"
)

// MockCollector wraps a real collector with test utilities.
// Provides synchronous collection and verification helpers.
//
//nolint:govet // Field alignment optimized for test helper readability
type MockCollector struct {
	exported []spanz.SpanRecord
	*spanz.Collector
	t  *testing.T
	mu sync.Mutex
}

// NewMockCollector creates a synchronous collector and registers it with tracer.
func NewMockCollector(t *testing.T, tracer *spanz.Tracer, bufferSize int) *MockCollector {
	t.Helper()
	collector := spanz.NewCollector(t.Name(), bufferSize)
	collector.SetSyncMode(true)
	tracer.OnSpanClose(collector.Collect)
	t.Cleanup(collector.Close)
	return &MockCollector{
		Collector: collector,
		t:         t,
		exported:  make([]spanz.SpanRecord, 0),
	}
}

// GetAll returns every record collected so far without losing earlier exports.
func (m *MockCollector) GetAll() []spanz.SpanRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current := m.Collector.Export(); len(current) > 0 {
		m.exported = append(m.exported, current...)
	}

	all := make([]spanz.SpanRecord, len(m.exported))
	copy(all, m.exported)
	return all
}

// AssertRecordCount verifies the exact number of records collected so far.
func (m *MockCollector) AssertRecordCount(expected int) {
	m.t.Helper()
	if got := len(m.GetAll()); got != expected {
		m.t.Errorf("Expected %d records, got %d", expected, got)
	}
}

// Find returns the record for a span ID.
func (m *MockCollector) Find(id spanz.SpanID) (spanz.SpanRecord, bool) {
	for _, r := range m.GetAll() {
		if r.SpanID == id {
			return r, true
		}
	}
	return spanz.SpanRecord{}, false
}

// AssertParentChild verifies parent-child relationship between two collected spans.
func (m *MockCollector) AssertParentChild(parentID, childID spanz.SpanID) {
	m.t.Helper()

	parent, ok := m.Find(parentID)
	if !ok {
		m.t.Errorf("Parent span %s not found", parentID)
		return
	}
	child, ok := m.Find(childID)
	if !ok {
		m.t.Errorf("Child span %s not found", childID)
		return
	}

	if child.ParentID == nil || *child.ParentID != parent.SpanID {
		m.t.Errorf("Parent-child relationship broken: %s is not parent of %s", parentID, childID)
	}
	if child.TraceID != parent.TraceID {
		m.t.Errorf("Trace ID mismatch: parent=%s, child=%s", parent.TraceID, child.TraceID)
	}
}

// SpanTree represents a hierarchical view of records.
type SpanTree struct {
	Record   spanz.SpanRecord
	Children []*SpanTree
}

// BuildSpanTree constructs a forest from a flat record list.
// Records whose parent was not collected become roots.
func BuildSpanTree(records []spanz.SpanRecord) []*SpanTree {
	nodeMap := make(map[spanz.SpanID]*SpanTree, len(records))
	roots := make([]*SpanTree, 0)

	for i := range records {
		nodeMap[records[i].SpanID] = &SpanTree{Record: records[i]}
	}

	for i := range records {
		r := records[i]
		node := nodeMap[r.SpanID]
		if r.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if parent, exists := nodeMap[*r.ParentID]; exists {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	return roots
}

// PrintSpanTree formats a span tree for debugging.
func PrintSpanTree(trees []*SpanTree) string {
	var sb strings.Builder
	for _, tree := range trees {
		printTreeNode(&sb, tree, 0)
	}
	return sb.String()
}

func printTreeNode(sb *strings.Builder, node *SpanTree, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%s%s (%.2fms)\n",
		indent, node.Record.SpanID, node.Record.Duration.Seconds()*1000)
	for _, child := range node.Children {
		printTreeNode(sb, child, depth+1)
	}
}

// TreeDepth returns the depth of the deepest node.
func TreeDepth(node *SpanTree) int {
	deepest := 0
	for _, child := range node.Children {
		if d := TreeDepth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
