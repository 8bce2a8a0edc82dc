package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/benbjohnson/ntbounds/preorder"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

const f1Text = "" +
	"In function: f1\n" +
	"\n" +
	"Block: B4\n" +
	"  In:\n" +
	"    <no widening>\n" +
	"\n" +
	"Block: B3\n" +
	"  In:\n" +
	"    <no widening>\n" +
	"  1: _Nt_array_ptr<char> p : bounds(p, p + i) = \"a\";\n" +
	"    <no widening>\n" +
	"  2: *(i + p)\n" +
	"    <no widening>\n" +
	"\n" +
	"Block: B2\n" +
	"  In:\n" +
	"    upper_bound(p) = 1\n" +
	"\n" +
	"Block: B1\n" +
	"  In:\n" +
	"    <no widening>\n" +
	"\n"

func TestWidenCommand_Run(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		stdout := MustRunWiden(t, "testdata/f1.c")
		if diff := cmp.Diff(f1Text, stdout); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("YAML", func(t *testing.T) {
		var reports []FunctionReport
		if err := yaml.Unmarshal([]byte(MustRunWiden(t, "-format", "yaml", "testdata/f1.c")), &reports); err != nil {
			t.Fatal(err)
		} else if got, want := len(reports), 1; got != want {
			t.Fatalf("len=%d, want %d", got, want)
		} else if got, want := reports[0].Function, "f1"; got != want {
			t.Fatalf("Function=%q, want %q", got, want)
		}

		var widened []string
		for _, b := range reports[0].Blocks {
			for _, wb := range b.In {
				widened = append(widened, wb.String())
			}
		}
		if diff := cmp.Diff([]string{"upper_bound(p) = 1"}, widened); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ConfigFormat", func(t *testing.T) {
		stdout := MustRunWiden(t, "-config", "testdata/yaml.toml", "testdata/f1.c")
		if !bytes.HasPrefix([]byte(stdout), []byte("- function: f1\n")) {
			t.Fatalf("unexpected output: %s", stdout)
		}
	})

	// Explicit flags override the config file.
	t.Run("FlagOverridesConfig", func(t *testing.T) {
		stdout := MustRunWiden(t, "-config", "testdata/yaml.toml", "-format", "text", "testdata/f1.c")
		if diff := cmp.Diff(f1Text, stdout); diff != "" {
			t.Fatal(diff)
		}
	})

	// Declared upper bounds are dumped in their canonical form.
	t.Run("DumpPreorder", func(t *testing.T) {
		stdout := MustRunWiden(t, "-config", "testdata/preorder.toml", "testdata/fold.c")

		want := "" +
			"BinaryOperator +\n" +
			"  ImplicitCast LValueToRValue\n" +
			"    Leaf p\n" +
			"  Leaf 2\n"
		if !strings.HasPrefix(stdout, "Preorder: upper_bound(p) = ") {
			t.Fatalf("unexpected output: %s", stdout)
		} else if !strings.Contains(stdout, want) {
			t.Fatalf("expected canonical tree, got:\n%s", stdout)
		}
	})

	t.Run("ErrInvalidConfig", func(t *testing.T) {
		cmd := NewWidenCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		if err := cmd.Run(context.Background(), []string{"-config", "testdata/invalid.toml", "testdata/f1.c"}); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("ErrFileRequired", func(t *testing.T) {
		cmd := NewWidenCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		if err := cmd.Run(context.Background(), nil); err == nil || err.Error() != "source file required" {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCanonCommand_Run(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		var stdout bytes.Buffer
		cmd := NewCanonCommand()
		cmd.Stdout, cmd.Stderr = &stdout, &bytes.Buffer{}
		if err := cmd.Run(context.Background(), []string{"2 + p"}); err != nil {
			t.Fatal(err)
		}

		want := "" +
			"BinaryOperator +\n" +
			"  ImplicitCast LValueToRValue\n" +
			"    Leaf p\n" +
			"  Leaf 2\n"
		if diff := cmp.Diff(want, stdout.String()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("ErrOverflow", func(t *testing.T) {
		cmd := NewCanonCommand()
		cmd.Stdout, cmd.Stderr = &bytes.Buffer{}, &bytes.Buffer{}
		if err := cmd.Run(context.Background(), []string{"2147483647 + 1"}); !errors.Is(err, preorder.ErrOverflow) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"foo"}); err == nil || err.Error() != "ntbounds foo: unknown command" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeclareIdents(t *testing.T) {
	vars := declareIdents("p + i * p")
	if got, want := len(vars), 2; got != want {
		t.Fatalf("len=%d, want %d", got, want)
	} else if !vars[0].Type.IsNtArrayPtr() || vars[1].Type.IsNtArrayPtr() {
		t.Fatalf("unexpected types: %s, %s", vars[0].Type, vars[1].Type)
	}
}

// MustRunWiden runs the widen command and returns its standard output.
func MustRunWiden(tb testing.TB, args ...string) string {
	tb.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewWidenCommand()
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(context.Background(), args); err != nil {
		tb.Fatalf("%s\n%s", err, stderr.String())
	}
	return stdout.String()
}
