package queryapi

import (
	"errors"

	"github.com/graphindexer/gossip-listener/internal/errs"
)

// apiError adapts the internal error taxonomy to graph-gophers/graphql-go's
// extensions mechanism: any error returned from a resolver that implements
// Extensions() map[string]interface{} has that map attached under
// "extensions" in the GraphQL response alongside its message, giving
// clients a stable "kind" string to branch on instead of parsing prose
// (spec.md §7).
type apiError struct {
	err  error
	kind string
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

func (e *apiError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.kind}
}

// kindOf classifies err against the shared sentinel taxonomy.
func kindOf(err error) string {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrDecode):
		return "decode"
	case errors.Is(err, errs.ErrStore):
		return "store"
	case errors.Is(err, errs.ErrTimeout):
		return "timeout"
	case errors.Is(err, errs.ErrConfig):
		return "config"
	default:
		return "internal"
	}
}

// wrapErr tags err with a kind string for the client, or returns nil
// unchanged. Resolvers call this on every error path instead of returning
// the raw store/decode error directly.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	return &apiError{err: err, kind: kindOf(err)}
}

// badRequest tags a client-input error (e.g. a malformed id) that isn't
// one of the sentinel taxonomy's categories.
func badRequest(msg string) error {
	return &apiError{err: errors.New(msg), kind: "bad_request"}
}
