// Command kestrel is the engine's command-line front end: "eval" runs a
// script file (or stdin) to completion and prints its result, grounded on
// ardnew-aenv/cli's own kong.CLI-with-subcommands shape and its Eval
// command's stdin/file source handling in particular.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/pkg/profile"

	"github.com/kestrelang/kestrel/engine"
	"github.com/kestrelang/kestrel/engine/config"
	"github.com/kestrelang/kestrel/internal/replui"
	"github.com/kestrelang/kestrel/scope"
	"github.com/kestrelang/kestrel/value"
)

// CLI is the top-level kestrel command set.
type CLI struct {
	Config string `help:"Path to a TOML defaults file"          name:"config"`
	Rules  string `help:"Path to a YAML sandbox permission file" name:"rules"`
	Pprof  string `help:"Profiling mode (cpu, mem, ...), empty disables profiling" name:"pprof"`

	Eval Eval `cmd:"" default:"withargs" help:"Evaluate a script file or stdin"`
	Repl Repl `cmd:"" help:"Start an interactive REPL"`
}

// Repl delegates to the kestrel-repl binary's Model; kept here as a thin
// subcommand so "kestrel repl" and "kestrel-repl" both work.
type Repl struct{}

func (r *Repl) Run(ctx context.Context, eng *engine.Engine) error {
	return replui.Run(eng)
}

// Eval evaluates a script, binding "--var name=value" pairs into its
// Context before running it.
type Eval struct {
	Source string   `arg:"" help:"Script file, or '-' for stdin" name:"source" default:"-"`
	Var    []string `help:"name=value bindings made available to the script" name:"var" short:"v"`
}

func (e *Eval) Run(ctx context.Context, eng *engine.Engine) error {
	var r io.Reader = os.Stdin
	if e.Source != "-" {
		f, err := os.Open(e.Source)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	src, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return err
	}

	mctx := scope.NewMapContext()
	for _, binding := range e.Var {
		name, val, ok := strings.Cut(binding, "=")
		if !ok {
			return fmt.Errorf("invalid --var %q, expected name=value", binding)
		}
		mctx.Set(name, parseVarValue(val))
	}

	result, err := eng.Evaluate(string(src), mctx)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	return nil
}

// parseVarValue does a best-effort literal parse of a CLI-supplied
// --var value: integers and booleans convert, everything else is a string.
func parseVarValue(s string) value.Value {
	if s == "true" || s == "false" {
		return value.Bool(s == "true")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int64(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float64(f)
	}
	return value.String(s)
}

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("kestrel"),
		kong.Description("Run and explore kestrel scripts"),
		kong.UsageOnError(),
	)
	ktx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if cli.Pprof != "" {
		defer profile.Start(profile.ProfilePath("."), profileMode(cli.Pprof)).Stop()
	}

	opts := []engine.Option{}
	if cli.Config != "" {
		d, err := config.LoadDefaults(cli.Config)
		ktx.FatalIfErrorf(err)
		opts = append(opts, engine.WithOptions(scope.Options{
			Strict:           d.Strict,
			Silent:           d.Silent,
			Safe:             d.Safe,
			StrictArithmetic: d.StrictArithmetic,
			MathContext:      d.MathContext(),
		}), engine.WithCacheSize(d.CacheSize))
	}
	if cli.Rules != "" {
		perms, err := config.LoadPermissions(cli.Rules)
		ktx.FatalIfErrorf(err)
		opts = append(opts, engine.WithSandboxPermissions(perms))
	}

	eng := engine.New(opts...)
	err = ktx.Run(context.Background(), eng)
	ktx.FatalIfErrorf(err)
}

func profileMode(mode string) func(*profile.Profile) {
	switch mode {
	case "mem":
		return profile.MemProfile
	case "block":
		return profile.BlockProfile
	case "trace":
		return profile.TraceProfile
	default:
		return profile.CPUProfile
	}
}
