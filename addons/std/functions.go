package std

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/vk/runbookgo/internal/diagnostics"
	"github.com/vk/runbookgo/internal/functions"
	"github.com/vk/runbookgo/internal/values"
)

func newConcatFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "concat",
		Documentation: "Concatenates its string arguments.",
		Parameters: []functions.Parameter{
			{Name: "parts", Documentation: "Strings to join.", Type: values.StringType()},
		},
		ReturnType: values.StringType(),
		CheckInstantiability: func(spec *functions.FunctionSpecification, argTypes []values.Type) (values.Type, *diagnostics.Diagnostic) {
			// Variadic: any number of strings.
			return values.StringType(), nil
		},
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			var sb strings.Builder
			for i, arg := range args {
				s, ok := arg.AsString()
				if !ok {
					return values.Null(), diagnostics.Errorf("concat: argument %d is not a string", i+1)
				}
				sb.WriteString(s)
			}
			return values.String(sb.String()), nil
		},
	}
}

func newAddFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "add",
		Documentation: "Adds two numbers, preserving integer arithmetic when both operands are integers.",
		Parameters: []functions.Parameter{
			{Name: "lhs", Type: values.IntegerType()},
			{Name: "rhs", Type: values.IntegerType()},
		},
		ReturnType: values.IntegerType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			if len(args) != 2 {
				return values.Null(), diagnostics.Errorf("add expects 2 arguments, got %d", len(args))
			}
			li, lIsInt := args[0].AsInteger()
			ri, rIsInt := args[1].AsInteger()
			if lIsInt && rIsInt {
				return values.Integer(li + ri), nil
			}
			lf, lOK := args[0].AsFloat()
			rf, rOK := args[1].AsFloat()
			if !lOK || !rOK {
				return values.Null(), diagnostics.Errorf("add: arguments must be numbers")
			}
			return values.Float(lf + rf), nil
		},
	}
}

func newUpperFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "upper",
		Documentation: "Uppercases a string.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.StringType()},
		},
		ReturnType: values.StringType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			if len(args) != 1 {
				return values.Null(), diagnostics.Errorf("upper expects 1 argument, got %d", len(args))
			}
			s, ok := args[0].AsString()
			if !ok {
				return values.Null(), diagnostics.Errorf("upper: argument is not a string")
			}
			return values.String(strings.ToUpper(s)), nil
		},
	}
}

func newBase64EncodeFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "base64_encode",
		Documentation: "Encodes a string or buffer as base64.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.StringType()},
		},
		ReturnType: values.StringType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			raw, diag := argBytes("base64_encode", args)
			if diag != nil {
				return values.Null(), diag
			}
			return values.String(base64.StdEncoding.EncodeToString(raw)), nil
		},
	}
}

func newBase64DecodeFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "base64_decode",
		Documentation: "Decodes a base64 string into a buffer.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.StringType()},
		},
		ReturnType: values.BufferType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			if len(args) != 1 {
				return values.Null(), diagnostics.Errorf("base64_decode expects 1 argument, got %d", len(args))
			}
			s, ok := args[0].AsString()
			if !ok {
				return values.Null(), diagnostics.Errorf("base64_decode: argument is not a string")
			}
			raw, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return values.Null(), diagnostics.Errorf("base64_decode: %s", err)
			}
			return values.Buffer(raw), nil
		},
	}
}

func newSha256Function() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "sha256",
		Documentation: "Hashes a string or buffer with SHA-256 and returns the digest buffer.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.BufferType()},
		},
		ReturnType: values.BufferType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			raw, diag := argBytes("sha256", args)
			if diag != nil {
				return values.Null(), diag
			}
			sum := sha256.Sum256(raw)
			return values.Buffer(sum[:]), nil
		},
	}
}

func newEncodeHexFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "encode_hex",
		Documentation: "Renders a buffer as a lowercase hex string.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.BufferType()},
		},
		ReturnType: values.StringType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			raw, diag := argBytes("encode_hex", args)
			if diag != nil {
				return values.Null(), diag
			}
			return values.String(hex.EncodeToString(raw)), nil
		},
	}
}

func newDecodeHexFunction() *functions.FunctionSpecification {
	return &functions.FunctionSpecification{
		Name:          "decode_hex",
		Documentation: "Parses a hex string into a buffer. A leading 0x prefix is accepted.",
		Parameters: []functions.Parameter{
			{Name: "value", Type: values.StringType()},
		},
		ReturnType: values.BufferType(),
		Run: func(spec *functions.FunctionSpecification, args []values.Value) (values.Value, *diagnostics.Diagnostic) {
			if len(args) != 1 {
				return values.Null(), diagnostics.Errorf("decode_hex expects 1 argument, got %d", len(args))
			}
			s, ok := args[0].AsString()
			if !ok {
				return values.Null(), diagnostics.Errorf("decode_hex: argument is not a string")
			}
			s = strings.TrimPrefix(s, "0x")
			raw, err := hex.DecodeString(s)
			if err != nil {
				return values.Null(), diagnostics.Errorf("decode_hex: %s", err)
			}
			return values.Buffer(raw), nil
		},
	}
}

// argBytes accepts a single string or buffer argument as raw bytes.
func argBytes(fn string, args []values.Value) ([]byte, *diagnostics.Diagnostic) {
	if len(args) != 1 {
		return nil, diagnostics.Errorf("%s expects 1 argument, got %d", fn, len(args))
	}
	if buf, ok := args[0].AsBuffer(); ok {
		return buf, nil
	}
	if s, ok := args[0].AsString(); ok {
		return []byte(s), nil
	}
	return nil, diagnostics.Errorf("%s: argument must be a string or buffer", fn)
}
