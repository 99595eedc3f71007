package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/joshharrison/critpath/internal/cpm"
	"github.com/joshharrison/critpath/internal/graph"
	"github.com/joshharrison/critpath/internal/ui"
)

func outputJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func dotEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// printDOT renders the network as Graphviz. Critical tasks are red,
// near-critical orange; driving relationships are bold and those on the
// selected chain red.
func printDOT(w io.Writer, g *graph.TaskGraph, res *cpm.Result) error {
	fmt.Fprintln(w, "digraph critpath {")
	fmt.Fprintln(w, "  rankdir=LR;")
	fmt.Fprintln(w, "  node [shape=box, style=rounded];")
	fmt.Fprintln(w)

	for _, id := range g.SortedIDs() {
		t := g.Tasks[id]
		label := fmt.Sprintf("%s\\n%s", dotEscape(id), dotEscape(t.Name))
		if graph.IsFinite(t.TotalFloat) {
			label += fmt.Sprintf("\\nTF %g", t.TotalFloat)
		}
		attrs := fmt.Sprintf(`label="%s"`, label)
		switch {
		case t.IsCritical:
			attrs += `, style="rounded,bold", color=red`
		case t.IsNearCritical:
			attrs += `, color=orange`
		}
		fmt.Fprintf(w, "  %q [%s];\n", id, attrs)
	}

	fmt.Fprintln(w)

	for _, rel := range g.Relationships {
		if _, ok := g.Tasks[rel.PredecessorID]; !ok {
			continue
		}
		if _, ok := g.Tasks[rel.SuccessorID]; !ok {
			continue
		}
		attrs := []string{fmt.Sprintf(`label="%s"`, rel.Type)}
		switch {
		case rel.IsCritical:
			attrs = append(attrs, "color=red", "penwidth=2")
		case rel.IsDriving:
			attrs = append(attrs, "penwidth=2")
		default:
			attrs = append(attrs, "style=dashed")
		}
		fmt.Fprintf(w, "  %q -> %q [%s];\n", rel.PredecessorID, rel.SuccessorID, strings.Join(attrs, ", "))
	}

	fmt.Fprintln(w, "}")
	return nil
}

// printASCII prints each driving chain followed by the tasks off every chain.
func printASCII(w io.Writer, g *graph.TaskGraph, res *cpm.Result) {
	ui.PrintBanner(w)
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Driving Network"))
	fmt.Fprintln(w, ui.Cyan("═════════════════"))
	fmt.Fprintln(w)

	onChain := make(graph.TaskSet)
	for i, c := range res.Chains {
		header := ui.ChainLabel(i + 1)
		if i == res.Selected {
			header += " " + ui.BoldYellow("(selected)")
		}
		fmt.Fprintf(w, "%s %s %s\n", ui.Cyan("──"), header, ui.Cyan("──────────────────────────────"))
		for _, id := range c.TaskIDs {
			onChain.Add(id)
			printASCIITask(w, g, id)
		}
		fmt.Fprintln(w)
	}

	var rest []string
	for _, id := range g.SortedIDs() {
		if !onChain.Has(id) {
			rest = append(rest, id)
		}
	}
	if len(rest) == 0 {
		return
	}
	fmt.Fprintf(w, "%s %s %s\n", ui.Cyan("──"), ui.Dim("Not driving"), ui.Cyan("──────────────────────────────"))
	for _, id := range rest {
		printASCIITask(w, g, id)
	}
	fmt.Fprintln(w)
}

func printASCIITask(w io.Writer, g *graph.TaskGraph, id string) {
	t := g.Tasks[id]
	crit := ui.Normal
	switch {
	case t.IsCritical:
		crit = ui.Critical
	case t.IsNearCritical:
		crit = ui.NearCritical
	}
	fmt.Fprintf(w, "  %s [%s] %s\n", ui.CriticalityIcon(crit), ui.BoldMagenta(id), t.Name)

	for _, rel := range g.Outgoing[id] {
		arrow := "└──→"
		if rel.IsDriving {
			arrow = "└══▶"
		}
		fmt.Fprintf(w, "      %s %s %s\n", ui.Dim(arrow), rel.SuccessorID, ui.Dim(rel.Type.String()))
	}
}
