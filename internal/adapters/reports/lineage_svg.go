package reports

import (
	"bytes"
	"fmt"
	"html"
	"strconv"

	"sowline/internal/lineage"
	"sowline/pkg/domain"
)

// Layout constants for the lineage chart. One row per sow, columns by
// generation depth.
const (
	svgNodeWidth  = 150
	svgNodeHeight = 34
	svgColGap     = 50
	svgRowGap     = 14
	svgMargin     = 20
)

type svgNode struct {
	node *domain.LineageNode
	x    int
	y    int
}

// RenderLineageSVG renders the maternal descent chart for the given roots.
// Branches the forest's view excludes are skipped; top-decile sows get a
// highlight fill and non-active sows are drawn muted with their exit cause.
func RenderLineageSVG(forest *lineage.Forest, roots []*domain.LineageNode) []byte {
	var placed []svgNode
	var edges [][2]int // indexes into placed: parent, child
	row := 0
	maxGen := 0

	var walk func(n *domain.LineageNode, parentIdx int)
	walk = func(n *domain.LineageNode, parentIdx int) {
		if !forest.Visible(n) {
			return
		}
		idx := len(placed)
		placed = append(placed, svgNode{
			node: n,
			x:    svgMargin + n.Generation*(svgNodeWidth+svgColGap),
			y:    svgMargin + row*(svgNodeHeight+svgRowGap),
		})
		row++
		if n.Generation > maxGen {
			maxGen = n.Generation
		}
		if parentIdx >= 0 {
			edges = append(edges, [2]int{parentIdx, idx})
		}
		for _, child := range n.Children {
			walk(child, idx)
		}
	}
	for _, root := range roots {
		walk(root, -1)
	}

	width := svgMargin*2 + (maxGen+1)*svgNodeWidth + maxGen*svgColGap
	height := svgMargin*2 + row*(svgNodeHeight+svgRowGap) - svgRowGap
	if row == 0 {
		height = svgMargin * 2
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" font-family="sans-serif" font-size="11">`+"\n", width, height)
	buf.WriteString(`<style>.edge{stroke:#888;fill:none}.node{stroke:#444;fill:#fff}.top{fill:#ffe08a}.retired{fill:#eee;stroke-dasharray:3 2}</style>` + "\n")

	for _, e := range edges {
		p, c := placed[e[0]], placed[e[1]]
		fmt.Fprintf(&buf, `<path class="edge" d="M%d %d H%d V%d H%d"/>`+"\n",
			p.x+svgNodeWidth, p.y+svgNodeHeight/2,
			c.x-svgColGap/2, c.y+svgNodeHeight/2, c.x)
	}

	for _, pn := range placed {
		n := pn.node
		class := "node"
		switch {
		case n.TopDecile:
			class = "node top"
		case n.Status != domain.StatusActive:
			class = "node retired"
		}
		fmt.Fprintf(&buf, `<rect class="%s" x="%d" y="%d" width="%d" height="%d" rx="4"/>`+"\n",
			class, pn.x, pn.y, svgNodeWidth, svgNodeHeight)
		fmt.Fprintf(&buf, `<text x="%d" y="%d" font-weight="bold">%s</text>`+"\n",
			pn.x+6, pn.y+14, html.EscapeString(n.ID))
		fmt.Fprintf(&buf, `<text x="%d" y="%d" fill="#555">%s</text>`+"\n",
			pn.x+6, pn.y+28, html.EscapeString(nodeDetail(n)))
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// nodeDetail is the second text line of a node: litter count, composite and,
// when the sow left the herd, the exit cause.
func nodeDetail(n *domain.LineageNode) string {
	detail := "P" + strconv.Itoa(n.ParityCount)
	if n.TotalScore != nil {
		detail += " " + strconv.FormatFloat(*n.TotalScore, 'f', 2, 64)
	}
	if n.Status != domain.StatusActive {
		detail += " " + string(n.Status)
		if n.Cause != nil && *n.Cause != "" {
			detail += " (" + *n.Cause + ")"
		}
	}
	return detail
}
