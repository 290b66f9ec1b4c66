package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
	"github.com/YuminosukeSato/hgboost/viz"
)

func runDump(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("dump")
	fs.String("model", "model.json", "model path")
	fs.Int("tree", -1, "tree index, -1 for every tree (text only)")
	fs.String("format", "text", "text, or a rendered format: "+strings.Join(viz.Formats(), ", "))
	fs.Bool("stats", false, "include gain and cover in the text dump")
	fs.String("output", "-", "output path, - for stdout")

	v, err := loadConfig(fs, args)
	if err != nil {
		return err
	}
	closer, err := setupLogging(v, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	e, err := gbdt.LoadModel(v.GetString("model"))
	if err != nil {
		return err
	}
	index := v.GetInt("tree")
	if index >= len(e.Trees) {
		return errors.NewConfigurationError("tree", fmt.Sprintf("model has %d trees", len(e.Trees)), index)
	}

	w, done, err := openOutput(v.GetString("output"), stdout)
	if err != nil {
		return err
	}
	format := strings.ToLower(v.GetString("format"))
	if format != "text" {
		if index < 0 {
			index = 0
		}
		if err := viz.RenderTree(e, index, format, w); err != nil {
			done()
			return err
		}
		return done()
	}

	dumps := e.DumpText(v.GetBool("stats"))
	for i, d := range dumps {
		if index >= 0 && i != index {
			continue
		}
		fmt.Fprintf(w, "booster[%d]:\n%s", i, d)
	}
	return done()
}
