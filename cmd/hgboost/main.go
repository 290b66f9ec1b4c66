// Command hgboost trains histogram gradient boosted trees and runs inference
// with saved models.
//
// Usage:
//
//	hgboost train      --data train.svm --eval valid=valid.svm --model model.json --set max_depth=4
//	hgboost predict    --model model.json --data test.svm [--raw | --leaf]
//	hgboost dump       --model model.json [--tree 0 --format svg --output tree.svg]
//	hgboost importance --model model.json [--type total_gain]
//
// Every flag can also be set in a YAML file given with --config or through an
// HGBOOST_ environment variable (HGBOOST_LOG_LEVEL=debug). Training
// parameters live under "params" in the config file and evaluation sets under
// "eval" as name: URI pairs. Config evaluation sets are added in name order, so
// the last name drives early stopping.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

type command struct {
	name  string
	short string
	run   func(args []string, stdout, stderr io.Writer) error
}

var commands = map[string]command{
	"train":      {"train", "train a model", runTrain},
	"predict":    {"predict", "predict with a saved model", runPredict},
	"dump":       {"dump", "print or render trees", runDump},
	"importance": {"importance", "print feature importance", runImportance},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "hgboost: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}
	if err := cmd.run(args[1:], stdout, stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "hgboost %s: %v\n", cmd.name, err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("usage: hgboost <command> [flags]\n\ncommands:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "  %-11s %s\n", name, commands[name].short)
	}
	sb.WriteString("\nrun 'hgboost <command> --help' for the flags of a command\n")
	fmt.Fprint(w, sb.String())
}
