package interpreter

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeProgramRuns(t *testing.T) {
	input := `{"type":"Program","block":{"type":"Block","statements":[
		{"type":"FunctionDeclaration","id":{"type":"Identifier","name":"f"},
		 "parameters":[{"type":"Identifier","name":"x"}],
		 "expression":{"type":"BinaryExpression","operator":"+",
			"left":{"type":"Identifier","name":"x"},"right":{"type":"Numeral","value":1}}},
		{"type":"PrintStatement","expression":{"type":"Call","callee":{"type":"Identifier","name":"f"},
			"args":[{"type":"Numeral","value":4}]}},
		{"type":"PrintStatement","expression":{"type":"SubscriptExpression",
			"array":{"type":"ArrayLiteral","elements":[{"type":"Numeral","value":1},{"type":"BooleanLiteral","value":false}]},
			"subscript":{"type":"Numeral","value":1}}}
	]}}`

	p, err := DecodeProgram([]byte(input))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	out, err := p.Run()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := inspectAll(out); !reflect.DeepEqual(got, []string{"5", "false"}) {
		t.Fatalf("expected [5 false], got %v", got)
	}
}

func TestEncodeDecodeKeepsTree(t *testing.T) {
	original := program(
		let("i", num(0)),
		fun("sq", []string{"n"}, bin("*", ident("n"), ident("n"))),
		while(bin("<", ident("i"), num(3)),
			printStmt(&ConditionalExpression{
				Test:       not(bin("==", ident("i"), num(1))),
				Consequent: call("sq", ident("i")),
				Alternate:  neg(num(2.5)),
			}),
			assign("i", bin("+", ident("i"), num(1))),
		),
		printStmt(&SubscriptExpression{Array: array(boolean(true), array()), Subscript: num(0)}),
	)

	data, err := EncodeProgram(original)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	decoded, err := DecodeProgram(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.String() != original.String() {
		t.Fatalf("tree changed:\n%s\n%s", original.String(), decoded.String())
	}

	want, _ := original.Run()
	got, err := decoded.Run()
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !reflect.DeepEqual(inspectAll(got), inspectAll(want)) {
		t.Fatalf("expected %v, got %v", inspectAll(want), inspectAll(got))
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		path  string
	}{
		{"not a program", `{"type":"Block","statements":[]}`, "$"},
		{"missing block", `{"type":"Program"}`, "$.block"},
		{"unknown statement", `{"type":"Program","block":{"type":"Block","statements":[{"type":"ReturnStatement"}]}}`, "$.block.statements[0]"},
		{"numeral without value", `{"type":"Program","block":{"type":"Block","statements":[{"type":"PrintStatement","expression":{"type":"Numeral"}}]}}`, "$.block.statements[0].expression.value"},
		{"numeral with text", `{"type":"Program","block":{"type":"Block","statements":[{"type":"PrintStatement","expression":{"type":"Numeral","value":"8"}}]}}`, "$.block.statements[0].expression.value"},
		{"callee not identifier", `{"type":"Program","block":{"type":"Block","statements":[{"type":"PrintStatement","expression":{"type":"Call","callee":{"type":"Numeral","value":1},"args":[]}}]}}`, "$.block.statements[0].expression.callee"},
		{"missing operand", `{"type":"Program","block":{"type":"Block","statements":[{"type":"PrintStatement","expression":{"type":"BinaryExpression","operator":"+","left":{"type":"Numeral","value":1}}}]}}`, "$.block.statements[0].expression.right"},
		{"unnamed parameter", `{"type":"Program","block":{"type":"Block","statements":[{"type":"FunctionDeclaration","id":{"type":"Identifier","name":"f"},"parameters":[{"type":"Identifier"}],"expression":{"type":"Numeral","value":1}}]}}`, "$.block.statements[0].parameters[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeProgram([]byte(tt.input))
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected DecodeError, got %v", err)
			}
			if decodeErr.Path != tt.path {
				t.Fatalf("expected path %s, got %s", tt.path, decodeErr.Path)
			}
		})
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	if _, err := DecodeProgram([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected an error for malformed input")
	}
}

func TestDecodeExpression(t *testing.T) {
	e, err := DecodeExpression([]byte(`{"type":"UnaryExpression","operator":"-","expression":{"type":"Numeral","value":5}}`))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	val, err := Evaluate(e, NewEnvironment())
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if val.Inspect() != "-5" {
		t.Fatalf("expected -5, got %s", val.Inspect())
	}
}
