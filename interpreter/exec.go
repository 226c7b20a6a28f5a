package interpreter

import (
	"fmt"
)

// Output is the append-only sequence of printed values.
type Output []Value

// State is the (environment, output) pair threaded through statements.
type State struct {
	Env    *Environment
	Output Output
}

// Execute runs one statement and returns the resulting state.
func Execute(stmt Statement, state State, opts ...Option) (State, error) {
	ev := &evaluator{logger: buildOptions(opts).logger}
	return ev.exec(stmt, state)
}

// ExecuteBlock runs the statements of block in order, threading state.
// Only WithLogger is consulted from opts; builtins come from state.Env.
func ExecuteBlock(block *Block, state State, opts ...Option) (State, error) {
	ev := &evaluator{logger: buildOptions(opts).logger}
	return ev.execBlock(block, state)
}

func (ev *evaluator) exec(stmt Statement, state State) (State, error) {
	switch stmt := stmt.(type) {
	case *VariableDeclaration:
		val, err := ev.eval(stmt.Expression, state.Env)
		if err != nil {
			return state, err
		}
		return State{Env: state.Env.Extended(stmt.ID.Name, val), Output: state.Output}, nil

	case *FunctionDeclaration:
		fn := &UserFunction{Parameters: stmt.Parameters, Body: stmt.Expression}
		return State{Env: state.Env.Extended(stmt.ID.Name, fn), Output: state.Output}, nil

	case *Assignment:
		val, err := ev.eval(stmt.Expression, state.Env)
		if err != nil {
			return state, err
		}
		if err := state.Env.Set(stmt.ID.Name, val); err != nil {
			return state, err
		}
		return state, nil

	case *PrintStatement:
		val, err := ev.eval(stmt.Expression, state.Env)
		if err != nil {
			return state, err
		}
		return State{Env: state.Env, Output: append(state.Output, val)}, nil

	case *WhileStatement:
		return ev.execWhile(stmt, state)

	case nil:
		return state, fmt.Errorf("cannot execute nil statement")
	}

	return state, fmt.Errorf("unsupported statement node %T", stmt)
}

// execWhile evaluates the condition against the environment the loop was
// entered with, even when the body declares new bindings.
func (ev *evaluator) execWhile(ws *WhileStatement, state State) (State, error) {
	entryEnv := state.Env
	for {
		condition, err := ev.eval(ws.Expression, entryEnv)
		if err != nil {
			return state, err
		}
		if !isTruthy(condition) {
			return state, nil
		}
		state, err = ev.execBlock(ws.Block, state)
		if err != nil {
			return state, err
		}
	}
}

func (ev *evaluator) execBlock(block *Block, state State) (State, error) {
	if block == nil {
		return state, nil
	}
	var err error
	for _, statement := range block.Statements {
		state, err = ev.exec(statement, state)
		if err != nil {
			return state, err
		}
	}
	return state, nil
}
