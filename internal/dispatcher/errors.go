package dispatcher

import (
	"errors"

	"github.com/hyp3rd/mssql-tool-server/internal/apperrors"
)

// codeFor maps the apperrors taxonomy to a JSON-RPC error code per spec.md
// §7: ErrUnknownTool → MethodNotFound, ErrPolicyDenied/ErrValidation →
// InvalidRequest, everything else → InternalError.
func codeFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrUnknownTool):
		return CodeMethodNotFound
	case errors.Is(err, apperrors.ErrPolicyDenied), errors.Is(err, apperrors.ErrValidation):
		return CodeInvalidRequest
	default:
		return CodeInternalError
	}
}

// toRPCError converts err into a protocol-level error object. The message
// never includes credentials — every apperrors.Wrapped message is built
// from human-authored text plus a driver error whose text SQL Server itself
// never populates with connection secrets.
func toRPCError(err error) *RPCError {
	data := map[string]any{"kind": apperrors.KindOf(err).Error()}

	return &RPCError{Code: codeFor(err), Message: err.Error(), Data: data}
}
