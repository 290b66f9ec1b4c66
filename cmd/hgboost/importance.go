package main

import (
	"io"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/YuminosukeSato/hgboost/gbdt"
)

func runImportance(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("importance")
	fs.String("model", "model.json", "model path")
	fs.String("type", string(gbdt.ImportanceGain), "weight, gain, total_gain or cover")
	fs.Int("top", 0, "show only the top N features, 0 for all")

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
	kind := gbdt.ImportanceType(v.GetString("type"))
	scores, err := e.FeatureImportance(kind)
	if err != nil {
		return err
	}
	renderImportance(stdout, kind, scores, v.GetInt("top"))
	return nil
}

func renderImportance(w io.Writer, kind gbdt.ImportanceType, scores []float64, top int) {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	if top > 0 && top < len(order) {
		order = order[:top]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("FEATURE IMPORTANCE (" + string(kind) + ")")
	t.AppendHeader(table.Row{"Rank", "Feature", "Importance"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Rank", Align: text.AlignRight},
		{Name: "Feature", Align: text.AlignLeft},
		{Name: "Importance", Align: text.AlignRight},
	})
	for rank, f := range order {
		t.AppendRow(table.Row{rank + 1, "f" + strconv.Itoa(f), scores[f]})
	}
	t.Render()
}
