package interpreter

import (
	"os"
	"time"

	"github.com/oarkflow/log"
)

// quietLogger only reports warnings and above so per-expression traces stay
// silent unless a caller hands in a debug logger.
var quietLogger = log.Logger{
	Level:  log.WarnLevel,
	Writer: &log.IOWriter{Writer: os.Stderr},
}

type options struct {
	logger   *log.Logger
	builtins map[string]BuiltinFunction
	order    []string
}

type Option func(*options)

// WithLogger routes evaluator traces to logger.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuiltin adds a host-native function to the initial environment,
// replacing a standard builtin of the same name.
func WithBuiltin(name string, fn BuiltinFunction) Option {
	return func(o *options) {
		if o.builtins == nil {
			o.builtins = make(map[string]BuiltinFunction)
		}
		if _, exists := o.builtins[name]; !exists {
			o.order = append(o.order, name)
		}
		o.builtins[name] = fn
	}
}

func buildOptions(opts []Option) *options {
	o := &options{logger: &quietLogger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// NewState returns the state a program starts from: the standard constants
// and builtins, any extra builtins from opts, and an empty output.
func NewState(opts ...Option) State {
	o := buildOptions(opts)
	return State{Env: initialEnvironment(o), Output: Output{}}
}

func initialEnvironment(o *options) *Environment {
	env := NewEnvironment()
	env.store["pi"] = &Number{Value: PI}
	for _, name := range standardBuiltinNames {
		env.store[name] = standardBuiltins[name]
	}
	for _, name := range o.order {
		env.store[name] = &Builtin{Name: name, Fn: o.builtins[name]}
	}
	return env
}

// Run executes the program from a fresh initial environment and returns
// everything it printed. The final environment is discarded.
func (p *Program) Run(opts ...Option) (Output, error) {
	o := buildOptions(opts)
	ev := &evaluator{logger: o.logger}
	start := time.Now()
	ev.logger.Debug().Int("statements", p.statementCount()).Msg("program started")

	state, err := ev.execBlock(p.Block, State{Env: initialEnvironment(o), Output: Output{}})
	if err != nil {
		ev.logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("program failed")
		return nil, err
	}
	ev.logger.Debug().
		Int("printed", len(state.Output)).
		Dur("elapsed", time.Since(start)).
		Msg("program finished")
	return state.Output, nil
}

func (p *Program) statementCount() int {
	if p.Block == nil {
		return 0
	}
	return len(p.Block.Statements)
}

// Interpret is shorthand for p.Run().
func Interpret(p *Program) (Output, error) {
	return p.Run()
}
