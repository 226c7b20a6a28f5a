package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/oarkflow/bella"
	"github.com/oarkflow/bella/interpreter"
)

const prompt = ">> "

// repl executes each complete chunk of input against one persistent state
// and echoes what that chunk printed. A chunk ends at a line where every
// opened brace is closed. A chunk that fails leaves the state untouched.
func repl(in io.Reader, out, errOut io.Writer) error {
	if errOut == nil {
		errOut = out
	}
	state := interpreter.NewState()
	scanner := bufio.NewScanner(in)
	var chunk strings.Builder
	depth := 0
	lexer := bella.NewLexer("")

	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		line := scanner.Text()
		chunk.WriteString(line)
		chunk.WriteByte('\n')
		depth += braceDelta(lexer, line)
		if depth > 0 {
			fmt.Fprint(out, ".. ")
			continue
		}
		source := chunk.String()
		chunk.Reset()
		depth = 0
		if strings.TrimSpace(source) != "" {
			next, err := evalChunk(source, state)
			if err != nil {
				fmt.Fprintln(errOut, err)
			} else {
				if err := writeOutput(out, next.Output[len(state.Output):]); err != nil {
					return err
				}
				state = next
			}
		}
		fmt.Fprint(out, prompt)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func evalChunk(source string, state interpreter.State) (interpreter.State, error) {
	program, err := bella.Parse(source)
	if err != nil {
		return state, err
	}
	scratch := interpreter.State{Env: state.Env.Merged(nil, nil), Output: state.Output}
	return interpreter.ExecuteBlock(program.Block, scratch, interpreter.WithLogger(bella.Logger()))
}

func braceDelta(l *bella.Lexer, line string) int {
	delta := 0
	l.Reset(line)
	for tok := l.NextToken(); tok.Type != bella.EOF; tok = l.NextToken() {
		switch tok.Type {
		case bella.LBRACE:
			delta++
		case bella.RBRACE:
			delta--
		}
	}
	return delta
}
