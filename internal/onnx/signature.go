package onnx

import (
	"strings"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// NodeInfo describes one declared model input or output. The ORT binding
// only surfaces node names, so DType and Shape stay empty for live sessions;
// manifest input specs and hand-built signatures may fill them. Shape dims
// use -1 for symbolic (batch-style) dimensions.
type NodeInfo struct {
	Name  string
	DType TensorDType
	Shape []int64
}

// Signature is the model's declared input/output contract, in declaration
// order.
type Signature struct {
	Inputs  []NodeInfo
	Outputs []NodeInfo
}

func (s Signature) Input(name string) (NodeInfo, bool) {
	for _, n := range s.Inputs {
		if n.Name == name {
			return n, true
		}
	}
	return NodeInfo{}, false
}

func (s Signature) InputNames() []string {
	return nodeNames(s.Inputs)
}

func (s Signature) OutputNames() []string {
	return nodeNames(s.Outputs)
}

func nodeNames(nodes []NodeInfo) []string {
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	return names
}

// JoinNames renders node names for log attributes.
func JoinNames(nodes []NodeInfo) string {
	return strings.Join(nodeNames(nodes), ",")
}

// signatureFromSession snapshots the session's input and output names in
// declaration order. Output dtypes and shapes only become known at run time,
// from the values the session returns.
func signatureFromSession(s *ort.Session) Signature {
	return Signature{
		Inputs:  nodesFromNames(s.InputNames()),
		Outputs: nodesFromNames(s.OutputNames()),
	}
}

func nodesFromNames(names []string) []NodeInfo {
	nodes := make([]NodeInfo, 0, len(names))
	for _, name := range names {
		nodes = append(nodes, NodeInfo{Name: name})
	}
	return nodes
}
