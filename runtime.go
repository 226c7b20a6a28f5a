package bella

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oarkflow/log"

	"github.com/oarkflow/bella/interpreter"
)

type RuntimeConfig struct {
	MaxSourceBytes  int
	MaxNestingDepth int
	LogExecution    bool
}

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   = RuntimeConfig{
		MaxSourceBytes:  1 << 20,
		MaxNestingDepth: 256,
		LogExecution:    false,
	}

	loggerMu sync.RWMutex
	logger   = &log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: os.Stderr}}
)

type runtimeConfigContextKey struct{}

type RuntimeConfigOverride struct {
	MaxSourceBytes  *int
	MaxNestingDepth *int
	LogExecution    *bool
}

func SetRuntimeConfig(cfg RuntimeConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() RuntimeConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}

func WithRuntimeConfigOverride(ctx context.Context, override RuntimeConfigOverride) context.Context {
	return context.WithValue(ctx, runtimeConfigContextKey{}, override)
}

func effectiveRuntimeConfig(ctx context.Context) RuntimeConfig {
	cfg := GetRuntimeConfig()
	ov, ok := ctx.Value(runtimeConfigContextKey{}).(RuntimeConfigOverride)
	if !ok {
		return cfg
	}
	if ov.MaxSourceBytes != nil {
		cfg.MaxSourceBytes = *ov.MaxSourceBytes
	}
	if ov.MaxNestingDepth != nil {
		cfg.MaxNestingDepth = *ov.MaxNestingDepth
	}
	if ov.LogExecution != nil {
		cfg.LogExecution = *ov.LogExecution
	}
	return cfg
}

// SetLogger replaces the logger used for execution logs.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	logger = l
}

// Logger returns the logger set with SetLogger.
func Logger() *log.Logger {
	return getLogger()
}

func getLogger() *log.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

type ErrorCode string

const (
	ErrCodeParse    ErrorCode = "PARSE_ERROR"
	ErrCodeRuntime  ErrorCode = "RUNTIME_ERROR"
	ErrCodeDecode   ErrorCode = "DECODE_ERROR"
	ErrCodeInput    ErrorCode = "INPUT_VALIDATION_ERROR"
	ErrCodeTimeout  ErrorCode = "RUN_TIMEOUT"
	ErrCodeCanceled ErrorCode = "RUN_CANCELED"
)

type BellaError struct {
	Code    ErrorCode
	Message string
	Details []string
	Cause   error
}

func (e *BellaError) Error() string {
	if e == nil {
		return ""
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, strings.Join(e.Details, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BellaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// CodeOf returns the code of the BellaError in err's chain, or "" if there
// is none.
func CodeOf(err error) ErrorCode {
	var bellaErr *BellaError
	if errors.As(err, &bellaErr) {
		return bellaErr.Code
	}
	return ""
}

func wrapContextErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &BellaError{
			Code:    ErrCodeTimeout,
			Message: "run timed out",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &BellaError{
			Code:    ErrCodeCanceled,
			Message: "run canceled",
			Cause:   err,
		}
	}
	return err
}

func validateSource(source string, cfg RuntimeConfig) error {
	if cfg.MaxSourceBytes > 0 && len(source) > cfg.MaxSourceBytes {
		return &BellaError{
			Code:    ErrCodeInput,
			Message: fmt.Sprintf("program source is %d bytes, limit is %d", len(source), cfg.MaxSourceBytes),
		}
	}
	if !utf8.ValidString(source) {
		return &BellaError{Code: ErrCodeInput, Message: "program source is not valid UTF-8"}
	}
	return nil
}

// Parse turns source text into a program using the global runtime config.
func Parse(source string) (*interpreter.Program, error) {
	return ParseContext(context.Background(), source)
}

// ParseContext is Parse with limits taken from ctx overrides.
func ParseContext(ctx context.Context, source string) (*interpreter.Program, error) {
	cfg := effectiveRuntimeConfig(ctx)
	if err := validateSource(source, cfg); err != nil {
		return nil, err
	}
	parser := newParser(NewLexer(source), cfg.MaxNestingDepth)
	program := parser.ParseProgram()
	if errs := parser.Errors(); len(errs) > 0 {
		return nil, &BellaError{
			Code:    ErrCodeParse,
			Message: "invalid program",
			Details: errs,
		}
	}
	return program, nil
}

// DecodeProgram reads a program from its JSON AST form.
func DecodeProgram(data []byte) (*interpreter.Program, error) {
	program, err := interpreter.DecodeProgram(data)
	if err != nil {
		return nil, &BellaError{
			Code:    ErrCodeDecode,
			Message: "invalid program tree",
			Cause:   err,
		}
	}
	return program, nil
}

// Run parses and executes source, returning everything it printed.
// ctx is checked before parsing and before execution only; a program that
// never terminates, such as `while true {}`, is not interrupted.
func Run(ctx context.Context, source string, opts ...interpreter.Option) (interpreter.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapContextErr(err)
	}
	program, err := ParseContext(ctx, source)
	if err != nil {
		return nil, err
	}
	return RunProgram(ctx, program, opts...)
}

// RunProgram executes an already parsed or decoded program. Like Run, it
// consults ctx only before execution starts.
func RunProgram(ctx context.Context, program *interpreter.Program, opts ...interpreter.Option) (interpreter.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapContextErr(err)
	}
	if program == nil {
		return nil, &BellaError{Code: ErrCodeInput, Message: "program is nil"}
	}
	cfg := effectiveRuntimeConfig(ctx)
	start := time.Now()
	out, err := program.Run(append([]interpreter.Option{interpreter.WithLogger(getLogger())}, opts...)...)
	if cfg.LogExecution {
		statements := 0
		if program.Block != nil {
			statements = len(program.Block.Statements)
		}
		entry := getLogger().Info().
			Int("statements", statements).
			Int("printed", len(out)).
			Dur("elapsed", time.Since(start))
		if err != nil {
			entry = entry.Err(err)
		}
		entry.Msg("bella program executed")
	}
	if err != nil {
		return nil, wrapRuntimeErr(err)
	}
	return out, nil
}

func wrapRuntimeErr(err error) error {
	return &BellaError{
		Code:    ErrCodeRuntime,
		Message: "program failed",
		Cause:   err,
	}
}
