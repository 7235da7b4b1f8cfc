package render

import (
	"fmt"
	"image"
	"image/color"
	"strconv"

	"github.com/wyfcoding/bloomlab/analysis"
	"github.com/wyfcoding/bloomlab/bloom"
)

const (
	margin          = 50
	filterMaxCell   = 20
	compareMaxCell  = 8
	bitArrayTop     = 100
	lineHeight      = 25
	smallLineHeight = 15
)

// Verdict 文本.
const (
	VerdictMightBeSwiped       = "MIGHT BE SWIPED"
	VerdictDefinitelyNotSwiped = "DEFINITELY NOT SWIPED"
)

// FilterImage 绘制过滤器位数组：已置位为绿色，未置位为浅灰，并附统计信息与图例.
func FilterImage(snap bloom.Snapshot, width, height int) *image.RGBA {
	img := newCanvas(width, height)
	drawCenteredText(img, width/2, 20, "Bloom Filter - Swiped Profiles", colorBlack)

	g := newGrid(snap.Size, margin, bitArrayTop, width-2*margin, filterMaxCell)
	for i, set := range snap.Bits {
		if set {
			g.drawCell(img, i, styleSet)
		} else {
			g.drawCell(img, i, styleClear)
		}
	}
	y := drawIndexLabels(img, g)

	statsY := y + 30
	drawText(img, margin, statsY, fmt.Sprintf("User Pool Size: %d profiles", snap.Size), colorBlack)
	drawText(img, margin, statsY+lineHeight, fmt.Sprintf("Hash Functions: %d", snap.NumHashes), colorBlack)
	drawText(img, margin, statsY+2*lineHeight, fmt.Sprintf("Profiles Swiped: %d", snap.Count), colorBlack)
	drawText(img, margin, statsY+3*lineHeight, fmt.Sprintf("False Positive Rate: %.4f", snap.FalsePositiveRate), colorBlack)

	legendY := statsY + 5*lineHeight
	drawLegend(img, margin, legendY, styleSet, "Profile Swiped (1)")
	drawLegend(img, margin, legendY+30, styleClear, "Profile Not Swiped (0)")
	return img
}

// QueryImage 绘制一次查询：element 的哈希位置为红色，其余已置位为绿色，并给出判定.
func QueryImage(snap bloom.Snapshot, element string, positions []int, mightContain bool, width, height int) *image.RGBA {
	img := newCanvas(width, height)
	drawCenteredText(img, width/2, 20, fmt.Sprintf("Checking Profile: '%s'", element), colorBlack)

	hashed := make(map[int]struct{}, len(positions))
	for _, p := range positions {
		hashed[p] = struct{}{}
	}

	g := newGrid(snap.Size, margin, bitArrayTop, width-2*margin, filterMaxCell)
	for i, set := range snap.Bits {
		switch _, isHash := hashed[i]; {
		case isHash:
			g.drawCell(img, i, styleHash)
		case set:
			g.drawCell(img, i, styleSet)
		default:
			g.drawCell(img, i, styleClear)
		}
	}
	y := drawIndexLabels(img, g)

	infoY := y + 30
	drawText(img, margin, infoY, "Hash Positions: "+formatPositions(positions), colorBlack)
	verdict, verdictColor := VerdictDefinitelyNotSwiped, colorGreen
	if mightContain {
		verdict, verdictColor = VerdictMightBeSwiped, colorRed
	}
	drawText(img, margin, infoY+lineHeight, "Decision: "+verdict, verdictColor)

	legendY := infoY + 3*lineHeight
	drawLegend(img, margin, legendY, styleHash, fmt.Sprintf("Hash positions for '%s'", element))
	drawLegend(img, margin, legendY+30, styleSet, "Profiles already swiped")
	drawLegend(img, margin, legendY+60, styleClear, "Profiles not swiped")
	return img
}

// ComparisonImage 以最多 3 列的网格绘制多组过滤器.
func ComparisonImage(results []analysis.Result, width, height int) *image.RGBA {
	img := newCanvas(width, height)
	drawCenteredText(img, width/2, 20, "Bloom Filter Comparison", colorBlack)
	if len(results) == 0 {
		return img
	}

	cols := min(3, len(results))
	rows := (len(results) + cols - 1) / cols
	colWidth := (width - margin) / cols
	rowHeight := (height - 150) / rows

	for i, r := range results {
		x := margin/2 + (i%cols)*colWidth
		y := 80 + (i/cols)*rowHeight
		drawText(img, x, y, r.Name, colorBlack)

		g := newGrid(r.Snapshot.Size, x, y+30, colWidth-20, compareMaxCell)
		for j, set := range r.Snapshot.Bits {
			if set {
				g.drawCell(img, j, styleSet)
			} else {
				g.drawCell(img, j, styleClear)
			}
		}

		statsY := y + 30 + g.height() + 10
		drawText(img, x, statsY, fmt.Sprintf("Pool: %d", r.Snapshot.Size), colorBlack)
		drawText(img, x, statsY+smallLineHeight, fmt.Sprintf("Hashes: %d", r.Snapshot.NumHashes), colorBlack)
		drawText(img, x, statsY+2*smallLineHeight, fmt.Sprintf("Swiped: %d", r.Snapshot.Count), colorBlack)
		drawText(img, x, statsY+3*smallLineHeight, fmt.Sprintf("FP Rate: %.4f", r.Estimated), colorBlack)
	}
	return img
}

// PerformanceImage 绘制两块柱状图：精确率/召回率，以及估算误报率.
func PerformanceImage(results []analysis.Result, width, height int) *image.RGBA {
	img := newCanvas(width, height)
	panelH := (height - 3*margin) / 2

	top := panel{x: margin + 40, y: margin, w: width - 2*margin - 40, h: panelH - 40}
	top.frame(img, "Profile Detection Accuracy", 1.0)
	bottom := panel{x: margin + 40, y: 2*margin + panelH, w: width - 2*margin - 40, h: panelH - 40}

	maxFP := 0.0
	for _, r := range results {
		maxFP = max(maxFP, r.Estimated)
	}
	if maxFP == 0 {
		maxFP = 1
	}
	bottom.frame(img, "Estimated False Positive Rate", maxFP)

	if len(results) == 0 {
		return img
	}
	slot := top.w / len(results)
	barW := max(2, slot*35/100)
	for i, r := range results {
		cx := top.x + slot*i + slot/2
		top.bar(img, cx-barW, barW, r.Precision, 1.0, colorSkyBlue)
		top.bar(img, cx, barW, r.Recall, 1.0, colorLightCoral)
		label := shortLabel(r.Params)
		drawCenteredText(img, cx, top.y+top.h+4, label, colorBlack)

		bottom.bar(img, cx-barW, 2*barW, r.Estimated, maxFP, colorOrange)
		drawCenteredText(img, cx, bottom.y+bottom.h+4, label, colorBlack)
	}

	drawLegend(img, width-margin-150, margin-30, cellStyle{fill: colorSkyBlue, border: colorGray}, "Precision")
	drawLegend(img, width-margin-150, margin-12, cellStyle{fill: colorLightCoral, border: colorGray}, "Recall")
	drawText(img, margin, height-margin/2, "Configuration labels are size/hashes", colorGray)
	return img
}

type panel struct {
	x, y, w, h int
}

func (p panel) frame(img *image.RGBA, title string, scale float64) {
	drawCenteredText(img, p.x+p.w/2, p.y-20, title, colorBlack)
	for _, frac := range []float64{0, 0.25, 0.5, 0.75, 1} {
		y := p.y + p.h - int(frac*float64(p.h))
		hline(img, p.x, p.x+p.w, y, colorGrid)
		label := strconv.FormatFloat(frac*scale, 'f', 2, 64)
		if scale < 0.1 {
			label = strconv.FormatFloat(frac*scale, 'f', 4, 64)
		}
		drawText(img, p.x-textWidth(label)-4, y-glyphHeight/2, label, colorBlack)
	}
	vline(img, p.x, p.y, p.y+p.h, colorBlack)
	hline(img, p.x, p.x+p.w, p.y+p.h, colorBlack)
}

func (p panel) bar(img *image.RGBA, x, w int, value, scale float64, c color.RGBA) {
	if scale <= 0 {
		return
	}
	h := int(min(1, max(0, value/scale)) * float64(p.h))
	if h == 0 {
		return
	}
	fillRect(img, image.Rect(x, p.y+p.h-h, x+w, p.y+p.h), c)
}

func drawIndexLabels(img *image.RGBA, g grid) int {
	bottom := g.y0 + g.height()
	if !g.labelled() {
		return bottom
	}
	for i := 0; i < g.size; i += 10 {
		drawText(img, g.rect(i).Min.X, bottom+5, strconv.Itoa(i), colorBlack)
	}
	return bottom + 5 + glyphHeight
}

func drawLegend(img *image.RGBA, x, y int, st cellStyle, label string) {
	r := image.Rect(x, y, x+20, y+15)
	fillRect(img, r, st.fill)
	strokeRect(img, r, st.border)
	drawText(img, x+30, y+1, label, colorBlack)
}

func formatPositions(positions []int) string {
	s := "["
	for i, p := range positions {
		if i > 0 {
			s += ", "
		}
		s += strconv.Itoa(p)
	}
	return s + "]"
}

func shortLabel(p bloom.Params) string {
	return strconv.Itoa(p.Size) + "/" + strconv.Itoa(p.NumHashes)
}
