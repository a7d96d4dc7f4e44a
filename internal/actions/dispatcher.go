// Package actions executes the ordered operation lists a plan carries:
// named, parameter-validated tool calls against the world store and the
// search index.
package actions

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Action is one named operation with its arguments, as the planner emits
// them.
type Action struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// Handler declares an operation: its parameter contract and its body.
type Handler struct {
	Name     string
	Required []string
	Optional []string
	Run      func(ctx context.Context, args map[string]any) (map[string]any, error)
}

type Dispatcher struct {
	handlers map[string]Handler
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{}, log: log}
}

func (d *Dispatcher) Register(h Handler) error {
	if h.Name == "" || h.Run == nil {
		return fmt.Errorf("handler must have a name and a body")
	}
	if _, exists := d.handlers[h.Name]; exists {
		return fmt.Errorf("handler %q already registered", h.Name)
	}
	d.handlers[h.Name] = h
	return nil
}

// Validate checks every action against its handler's parameter contract
// without executing anything. Used before dispatch so a malformed plan
// fails the tick with no side effects attempted.
func (d *Dispatcher) Validate(actions []Action) error {
	for i, action := range actions {
		h, ok := d.handlers[action.Name]
		if !ok {
			return fmt.Errorf("action %d: unknown operation %q", i, action.Name)
		}
		for _, param := range h.Required {
			if !hasParam(action.Args, param) {
				return fmt.Errorf("action %d (%s): missing required parameter %q", i, action.Name, param)
			}
		}
	}
	return nil
}

// DispatchError names the failing operation and carries the results the
// preceding operations already produced. Those side effects are not rolled
// back; compensation is the caller's concern.
type DispatchError struct {
	Index   int
	Name    string
	Partial []map[string]any
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("action %d (%s) failed after %d completed: %v", e.Index, e.Name, len(e.Partial), e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatch executes the actions strictly in order, stopping at the first
// failure.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []Action) ([]map[string]any, error) {
	results := make([]map[string]any, 0, len(actions))
	for i, action := range actions {
		h, ok := d.handlers[action.Name]
		if !ok {
			return results, &DispatchError{Index: i, Name: action.Name, Partial: results,
				Err: fmt.Errorf("unknown operation")}
		}
		for _, param := range h.Required {
			if !hasParam(action.Args, param) {
				return results, &DispatchError{Index: i, Name: action.Name, Partial: results,
					Err: fmt.Errorf("missing required parameter %q", param)}
			}
		}

		out, err := h.Run(ctx, action.Args)
		if err != nil {
			d.log.Warn("action failed",
				zap.Int("index", i),
				zap.String("operation", action.Name),
				zap.Error(err))
			return results, &DispatchError{Index: i, Name: action.Name, Partial: results, Err: err}
		}
		d.log.Debug("action completed",
			zap.Int("index", i),
			zap.String("operation", action.Name))
		results = append(results, out)
	}
	return results, nil
}

func hasParam(args map[string]any, key string) bool {
	v, ok := args[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}
