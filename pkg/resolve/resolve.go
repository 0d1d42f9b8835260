// Package resolve matches a container name to the design layer group that
// fills it.
//
// [Resolve] never fails. Every outcome, including "the document has not been
// parsed yet", is reported as a [Status] with a human-readable message so the
// caller can surface it inline:
//
//	res := resolve.Resolve("!!HERO", layers)
//	if !res.Status.Go() {
//	    return res.Message
//	}
//
// Matching is strict first, then case-insensitive. Both passes walk the tree
// in pre-order (parent before children, siblings in order) and take the first
// hit.
package resolve

import (
	"fmt"
	"strings"

	"github.com/matzehuels/recompose/pkg/design"
)

// Status is the outcome of a resolution.
type Status string

const (
	StatusDataLocked         Status = "DATA_LOCKED"
	StatusNoName             Status = "NO_NAME"
	StatusResolved           Status = "RESOLVED"
	StatusCaseMismatch       Status = "CASE_MISMATCH"
	StatusEmptyGroup         Status = "EMPTY_GROUP"
	StatusMissingDesignGroup Status = "MISSING_DESIGN_GROUP"
)

// Go reports whether downstream work may proceed with the resolved node.
func (s Status) Go() bool {
	return s == StatusResolved || s == StatusCaseMismatch || s == StatusEmptyGroup
}

// Warning reports whether the status should be shown as a warning.
func (s Status) Warning() bool {
	return s == StatusCaseMismatch || s == StatusEmptyGroup
}

// Result is the outcome of [Resolve].
type Result struct {
	Status  Status        `json:"status"`
	Message string        `json:"message"`
	Node    *design.Layer `json:"node,omitempty"`
	Count   int           `json:"count"`
}

// Marker is the character stripped from the start of container names.
const Marker = "!"

// Resolve finds the layer group for name in tree. A nil tree means the
// document is not available yet.
func Resolve(name string, tree []design.Layer) Result {
	if tree == nil {
		return Result{
			Status:  StatusDataLocked,
			Message: "design data is not loaded yet",
		}
	}

	clean := strings.TrimLeft(name, Marker)
	if strings.TrimSpace(clean) == "" {
		return Result{
			Status:  StatusNoName,
			Message: "container has no name",
		}
	}

	strict := true
	node := find(tree, func(l *design.Layer) bool { return l.Name == clean })
	if node == nil {
		strict = false
		node = find(tree, func(l *design.Layer) bool { return strings.EqualFold(l.Name, clean) })
	}
	if node == nil {
		return Result{
			Status:  StatusMissingDesignGroup,
			Message: fmt.Sprintf("no design group named %q", clean),
		}
	}

	count := LeafCount(*node)
	switch {
	case count == 0:
		return Result{
			Status:  StatusEmptyGroup,
			Message: fmt.Sprintf("design group %q has no layers", node.Name),
			Node:    node,
		}
	case strict:
		return Result{
			Status:  StatusResolved,
			Message: fmt.Sprintf("resolved %q (%d layers)", node.Name, count),
			Node:    node,
			Count:   count,
		}
	default:
		return Result{
			Status:  StatusCaseMismatch,
			Message: fmt.Sprintf("matched %q for %q ignoring case (%d layers)", node.Name, clean, count),
			Node:    node,
			Count:   count,
		}
	}
}

func find(layers []design.Layer, match func(*design.Layer) bool) *design.Layer {
	for i := range layers {
		if match(&layers[i]) {
			return &layers[i]
		}
		if hit := find(layers[i].Children, match); hit != nil {
			return hit
		}
	}
	return nil
}

// LeafCount returns the number of non-group layers under l. A group counts
// the sum of its children (0 when childless); anything else counts 1.
func LeafCount(l design.Layer) int {
	if !l.IsGroup() {
		return 1
	}
	n := 0
	for _, c := range l.Children {
		n += LeafCount(c)
	}
	return n
}
