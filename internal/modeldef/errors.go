package modeldef

import "fmt"

// ResolveError reports an inconsistent definition graph.
type ResolveError struct {
	Type    string
	Field   string
	Message string
}

func (e *ResolveError) Error() string {
	switch {
	case e.Type != "" && e.Field != "":
		return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Message)
	case e.Type != "":
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return e.Message
}

func errorf(typ, field, format string, args ...any) *ResolveError {
	return &ResolveError{Type: typ, Field: field, Message: fmt.Sprintf(format, args...)}
}
