package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	colorWhite      = color.RGBA{255, 255, 255, 255}
	colorBlack      = color.RGBA{0, 0, 0, 255}
	colorGreen      = color.RGBA{0, 128, 0, 255}
	colorDarkGreen  = color.RGBA{0, 100, 0, 255}
	colorLightGray  = color.RGBA{211, 211, 211, 255}
	colorGray       = color.RGBA{128, 128, 128, 255}
	colorRed        = color.RGBA{255, 0, 0, 255}
	colorDarkRed    = color.RGBA{139, 0, 0, 255}
	colorSkyBlue    = color.RGBA{135, 206, 235, 255}
	colorLightCoral = color.RGBA{240, 128, 128, 255}
	colorOrange     = color.RGBA{255, 165, 0, 255}
	colorGrid       = color.RGBA{225, 225, 225, 255}
)

const glyphHeight = 13

// cellStyle 单个位格的填充与描边色.
type cellStyle struct {
	fill, border color.RGBA
}

var (
	styleSet   = cellStyle{fill: colorGreen, border: colorDarkGreen}
	styleClear = cellStyle{fill: colorLightGray, border: colorGray}
	styleHash  = cellStyle{fill: colorRed, border: colorDarkRed}
)

func newCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorWhite), image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

// drawText 以 (x, y) 为左上角绘制单行文本.
func drawText(img *image.RGBA, x, y int, s string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y+basicfont.Face7x13.Ascent),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// drawCenteredText 以 cx 为水平中心绘制文本.
func drawCenteredText(img *image.RGBA, cx, y int, s string, c color.RGBA) {
	drawText(img, cx-textWidth(s)/2, y, s, c)
}

// grid 描述位数组在画布上的排布。位数超过一行可容纳的数量时换行.
type grid struct {
	x0, y0 int
	cell   int
	perRow int
	rows   int
	size   int
}

// newGrid 计算格子边长 min(maxCell, availW/size)，至少为 1，并在 availW 内水平居中.
func newGrid(size, left, top, availW, maxCell int) grid {
	if size <= 0 {
		return grid{x0: left, y0: top, cell: 1}
	}
	cell := max(1, min(maxCell, availW/size))
	perRow := max(1, min(size, availW/cell))
	rows := (size + perRow - 1) / perRow
	return grid{
		x0:     left + (availW-perRow*cell)/2,
		y0:     top,
		cell:   cell,
		perRow: perRow,
		rows:   rows,
		size:   size,
	}
}

func (g grid) rect(i int) image.Rectangle {
	x := g.x0 + (i%g.perRow)*g.cell
	y := g.y0 + (i/g.perRow)*g.cell
	inner := g.cell
	if g.cell > 3 {
		inner = g.cell - 1
	}
	return image.Rect(x, y, x+inner, y+inner)
}

func (g grid) height() int {
	return g.rows * g.cell
}

// labelled 报告是否能在单行布局下为每第 10 个下标绘制标签.
func (g grid) labelled() bool {
	return g.rows == 1 && g.cell*10 >= textWidth("0000")
}

func (g grid) drawCell(img *image.RGBA, i int, st cellStyle) {
	r := g.rect(i)
	fillRect(img, r, st.fill)
	if g.cell >= 4 {
		strokeRect(img, r, st.border)
	}
}
