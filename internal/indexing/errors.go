package indexing

import (
	"errors"
	"fmt"
	"strings"
)

// BuildErrorCode classifies build failures.
type BuildErrorCode string

const (
	// ErrUnresolvedField is an index key, included or filter field the
	// reflected type does not have.
	ErrUnresolvedField BuildErrorCode = "UNRESOLVED_FIELD"
	// ErrInheritedKey is an index over fields whose columns live in an
	// ancestor's table and that no ancestor index covers.
	ErrInheritedKey BuildErrorCode = "INHERITED_KEY"
	// ErrDuplicateIndex is a second index with the same name on one type.
	ErrDuplicateIndex BuildErrorCode = "DUPLICATE_INDEX"
	// ErrTooManyClustered is more than one clustered candidate at a type.
	ErrTooManyClustered BuildErrorCode = "TOO_MANY_CLUSTERED"
	// ErrClusteredNotRoot is a clustered index declared below a SingleTable root.
	ErrClusteredNotRoot BuildErrorCode = "CLUSTERED_NOT_ROOT"
	// ErrInvalidFilter is a partial index filter that cannot be compiled.
	ErrInvalidFilter BuildErrorCode = "INVALID_FILTER"
	// ErrInternal is a broken builder invariant, not a bad model.
	ErrInternal BuildErrorCode = "INTERNAL"
)

// BuildError is a fatal build failure. The model it was raised on must be
// discarded.
type BuildError struct {
	Code    BuildErrorCode
	Type    string
	Index   string
	Field   string
	Message string
	Details []string
}

func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	if e.Type != "" {
		sb.WriteString(" [" + e.Type)
		if e.Index != "" {
			sb.WriteString("/" + e.Index)
		}
		sb.WriteString("]")
	}
	if e.Field != "" {
		fmt.Fprintf(&sb, " field %q", e.Field)
	}
	sb.WriteString(": " + e.Message)
	if len(e.Details) > 0 {
		sb.WriteString(" (" + strings.Join(e.Details, ", ") + ")")
	}
	return sb.String()
}

// IsConfigError reports whether err is a build error caused by the model
// definitions rather than by the builder itself.
func IsConfigError(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code != ErrInternal
}

// IsInternalError reports whether err signals a builder bug.
func IsInternalError(err error) bool {
	var be *BuildError
	return errors.As(err, &be) && be.Code == ErrInternal
}

func buildErr(code BuildErrorCode, typ, index, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Type: typ, Index: index, Message: fmt.Sprintf(format, args...)}
}

func fieldErr(code BuildErrorCode, typ, index, field, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Type: typ, Index: index, Field: field, Message: fmt.Sprintf(format, args...)}
}

func internalErr(typ, format string, args ...any) *BuildError {
	return buildErr(ErrInternal, typ, "", format, args...)
}
