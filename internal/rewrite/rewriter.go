// Package rewrite provides a generic handler-driven rewriter for Python
// module trees, plus the import-remapping and class-flattening handlers
// built on it.
package rewrite

import (
	"fmt"

	"github.com/Asthestarsfalll/codeslim-go/internal/pyast"
)

// HandlerError reports a handler or hook that failed while rewriting a
// node of a particular kind.
type HandlerError struct {
	// Kind is the node kind being rewritten.
	Kind pyast.Kind

	// Err is the underlying handler error.
	Err error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("rewriting %s node: %v", e.Kind, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Handler transforms one node. Returning (nil, nil) removes the node
// from its parent's child sequence; the removed node's descendants are
// not visited. A registered handler owns the node's children: the
// default recursion into class bodies only happens for kinds without a
// handler.
type Handler func(pyast.Node) (pyast.Node, error)

// PreHook observes a node before its handler runs. It may record state
// for the handler but must not alter traversal order.
type PreHook func(pyast.Node) error

// PostHook runs after the handler and may replace or remove its result.
type PostHook func(pyast.Node) (pyast.Node, error)

// Rewriter walks a module tree dispatching nodes to handlers by kind.
// The same traversal is shared by import rewriting, definition pruning
// and merge substitution; each caller supplies its own handler table.
type Rewriter struct {
	handlers map[pyast.Kind]Handler
	pre      map[pyast.Kind]PreHook
	post     map[pyast.Kind]PostHook
}

// New creates a rewriter with the given handler table and optional hook
// maps. Nil maps are allowed.
func New(handlers map[pyast.Kind]Handler, pre map[pyast.Kind]PreHook, post map[pyast.Kind]PostHook) *Rewriter {
	return &Rewriter{handlers: handlers, pre: pre, post: post}
}

// Rewrite applies the handler table to the module body in place.
// The first handler or hook error aborts the walk and propagates.
func (r *Rewriter) Rewrite(m *pyast.Module) error {
	body, err := r.rewriteList(m.Body)
	if err != nil {
		return err
	}
	m.Body = body
	return nil
}

// rewriteList visits each node and compacts out deletions.
func (r *Rewriter) rewriteList(nodes []pyast.Node) ([]pyast.Node, error) {
	out := make([]pyast.Node, 0, len(nodes))
	for _, node := range nodes {
		replacement, err := r.visit(node)
		if err != nil {
			return nil, err
		}
		if replacement == nil {
			continue
		}
		out = append(out, replacement)
	}
	return out, nil
}

func (r *Rewriter) visit(node pyast.Node) (pyast.Node, error) {
	if node == nil {
		return nil, nil
	}
	kind := node.NodeKind()

	if hook, ok := r.pre[kind]; ok {
		if err := hook(node); err != nil {
			return nil, &HandlerError{Kind: kind, Err: err}
		}
	}

	var err error
	if handler, ok := r.handlers[kind]; ok {
		node, err = handler(node)
		if err != nil {
			return nil, &HandlerError{Kind: kind, Err: err}
		}
	} else {
		// Recursion errors are already wrapped at their own node.
		node, err = r.genericVisit(node)
		if err != nil {
			return nil, err
		}
	}

	if hook, ok := r.post[kind]; ok {
		if node == nil {
			return nil, nil
		}
		node, err = hook(node)
		if err != nil {
			return nil, &HandlerError{Kind: kind, Err: err}
		}
	}

	return node, nil
}

// genericVisit is the fallback structural recursion. Only class bodies
// hold further nodes; function bodies are raw text.
func (r *Rewriter) genericVisit(node pyast.Node) (pyast.Node, error) {
	if cls, ok := node.(*pyast.ClassDef); ok {
		body, err := r.rewriteList(cls.Body)
		if err != nil {
			return nil, err
		}
		cls.Body = body
	}
	return node, nil
}
