package viz

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/YuminosukeSato/hgboost/gbdt"
	"github.com/YuminosukeSato/hgboost/pkg/errors"
)

var formats = map[string]graphviz.Format{
	"dot": graphviz.XDOT,
	"svg": graphviz.SVG,
	"png": graphviz.PNG,
	"jpg": graphviz.JPG,
}

// Formats lists the names accepted by RenderTree.
func Formats() []string {
	return []string{"dot", "jpg", "png", "svg"}
}

// RenderTree draws tree index of e in the given format ("dot", "svg", "png"
// or "jpg") and writes it to w. Split nodes show "f<feature> <= threshold";
// the edge taken by missing values is labelled "missing".
func RenderTree(e *gbdt.Ensemble, index int, format string, w io.Writer) error {
	if e == nil || index < 0 || index >= len(e.Trees) {
		return errors.NewValueError("RenderTree", fmt.Sprintf("tree index %d out of range", index))
	}
	f, ok := formats[strings.ToLower(format)]
	if !ok {
		return errors.NewConfigurationError("format", "must be one of "+strings.Join(Formats(), ", "), format)
	}

	g := graphviz.New()
	defer g.Close()
	graph, err := g.Graph()
	if err != nil {
		return errors.Wrap(err, "RenderTree: create graph")
	}
	defer graph.Close()

	if _, err := drawNode(graph, e.Trees[index], 0); err != nil {
		return errors.Wrap(err, "RenderTree")
	}
	if err := g.Render(graph, f, w); err != nil {
		return errors.Wrapf(err, "RenderTree: render %s", format)
	}
	return nil
}

func drawNode(graph *cgraph.Graph, t *gbdt.Tree, id int) (*cgraph.Node, error) {
	n := &t.Nodes[id]
	node, err := graph.CreateNode("n" + strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	if n.IsLeaf() {
		node.SetShape(cgraph.BoxShape)
		node.SetLabel(fmt.Sprintf("leaf %s\ncover %s", formatFloat(n.Weight), formatFloat(n.Cover)))
		return node, nil
	}
	node.SetLabel(fmt.Sprintf("f%d <= %s\ngain %s", n.Feature, formatFloat(n.Threshold), formatFloat(n.Gain)))

	for _, child := range []struct {
		id      int
		label   string
		missing bool
	}{
		{n.Left, "yes", n.DefaultLeft},
		{n.Right, "no", !n.DefaultLeft},
	} {
		c, err := drawNode(graph, t, child.id)
		if err != nil {
			return nil, err
		}
		edge, err := graph.CreateEdge("", node, c)
		if err != nil {
			return nil, err
		}
		label := child.label
		if child.missing {
			label += ", missing"
		}
		edge.SetLabel(label)
	}
	return node, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
