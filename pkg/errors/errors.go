package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error, structured as
// dotted "component.operation.reason" segments.
type Code string

const (
	// Loader (§4.A). DirectoryMissing is the fatal directory-level failure;
	// ReadFailure classifies per-file failures, which loader.Load turns into
	// warnings (§7 MalformedDecision) rather than returning.
	CodeLoaderDirectoryMissing Code = "loader.scan.directory_missing"
	CodeLoaderReadFailure      Code = "loader.read.failure"

	// Embedder (§4.B / §7 EmbeddingFailure).
	CodeEmbedderRequestFailure      Code = "embedder.request.failure"
	CodeEmbedderInvalidConfig       Code = "embedder.config.invalid"
	CodeEmbedderFingerprintMismatch Code = "embedder.fingerprint.mismatch"

	// Store (§4.C / §7 StoreFailure).
	CodeStoreDatabaseFailure Code = "store.database.failure"
	CodeStoreNotFound        Code = "store.lookup.not_found"
	CodeStoreInvalidInput    Code = "store.invalid_input"

	// Delta engine (§4.D).
	CodeDeltaApplyFailure Code = "delta.apply.failure"

	// Query engine (§4.E / §7 NotFound, EmptyResult).
	CodeQueryNotFound    Code = "query.lookup.not_found"
	CodeQueryEmptyResult Code = "query.result.empty"
	CodeQueryInvalidArgs Code = "query.args.invalid"

	// Config (§6 / ambient).
	CodeConfigLoadFailure     Code = "config.load.failure"
	CodeConfigInvalidValue    Code = "config.validate.invalid_value"
	CodeConfigBootstrapFailed Code = "config.bootstrap.failure"

	// Secrets (ambient, embedder credential resolution).
	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.lookup.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretListFailure    Code = "secret.list.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	// Lock (§5 exclusive/shared index lock, §7 LockHeld).
	CodeLockHeld    Code = "lock.acquire.held"
	CodeLockFailure Code = "lock.acquire.failure"

	// CLI boundary (§6/§7).
	CodeCLIInputInvalid Code = "cli.input.invalid"
	CodeCLIInternal     Code = "cli.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldPath(value string) Attr         { return Field("path", value) }
func FieldDecisionID(value uint32) Attr   { return Field("decision_id", value) }
func FieldDirectory(value string) Attr    { return Field("directory", value) }

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(string(code)).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(string(code)).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(code)).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(string(code)).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, preserving its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeCLIInternal
	}

	return oops.Code(string(code)).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_config"
}

func IsEmptyResult(err error) bool {
	return reason(CodeOf(err)) == "empty"
}

func IsLockHeld(err error) bool {
	return CodeOf(err) == CodeLockHeld
}

// ExitCode maps an error to the CLI exit code taxonomy of spec §7:
// 0 success, 1 "quiet" not-found/empty-result, 2 everything else fatal.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case IsNotFound(err), IsEmptyResult(err):
		return 1
	default:
		return 2
	}
}

func Join(errs ...error) error {
	return oops.Code(string(CodeCLIInternal)).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
