package canvasrenderer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/textforge/catalog"
	"github.com/ByLCY/textforge/fonts"
	"github.com/ByLCY/textforge/plan"
	"github.com/ByLCY/textforge/registry"
	"github.com/ByLCY/textforge/renderer"
)

// 页面尺寸与间距单位为 mm，字号单位为 pt。
const (
	defaultPageWidth  = 210.0
	defaultPageHeight = 297.0
	defaultMargin     = 15.0
	defaultFontSize   = 8.0
	titleScale        = 1.3
	blockSpacing      = 4.0
	bandPadding       = 1.2
	borderWidth       = 0.2
)

// Renderer draws a review sheet of a compiled plan via github.com/tdewolff/canvas.
type Renderer struct {
	opts Options

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the review sheet.
type Options struct {
	// FontData 优先于 FontPath；两者都为空时依次尝试实验字体列表中的字体和内置字体。
	FontData   []byte
	FontPath   string
	PageWidth  float64
	PageHeight float64
	Margin     float64
	FontSize   float64
}

// NewRenderer creates a renderer, filling zero options with A4 defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.PageWidth <= 0 {
		opts.PageWidth = defaultPageWidth
	}
	if opts.PageHeight <= 0 {
		opts.PageHeight = defaultPageHeight
	}
	if opts.Margin <= 0 || opts.Margin*2 >= opts.PageWidth || opts.Margin*2 >= opts.PageHeight {
		opts.Margin = defaultMargin
	}
	if opts.FontSize <= 0 {
		opts.FontSize = defaultFontSize
	}
	return &Renderer{opts: opts}
}

// Render renders the plan into a PDF byte slice.
func (r *Renderer) Render(p *plan.Plan) ([]byte, error) {
	if p == nil || p.Registry == nil {
		return nil, fmt.Errorf("计划为空")
	}
	blocks := Blocks(p)
	if len(blocks) == 0 {
		return nil, fmt.Errorf("缺少可渲染的内容")
	}

	family, err := r.ensureFontFamily(p.Env)
	if err != nil {
		return nil, err
	}
	titleFace := family.Face(r.opts.FontSize*titleScale, canvas.Hex("#1e1e1e"), canvas.FontRegular, canvas.FontNormal)
	bodyFace := family.Face(r.opts.FontSize, canvas.Hex("#333333"), canvas.FontRegular, canvas.FontNormal)

	s := newSheet(r.opts.PageWidth, r.opts.PageHeight, r.opts.Margin)
	for _, b := range blocks {
		s.drawBlock(b, titleFace, bodyFace)
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, r.opts.PageWidth, r.opts.PageHeight, nil)
	applyMeta(writer, p.Meta)
	for i, c := range s.pages {
		if i > 0 {
			writer.NewPage(r.opts.PageWidth, r.opts.PageHeight)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func applyMeta(writer *pdf.PDF, meta registry.Meta) {
	if writer == nil {
		return
	}
	keywords := strings.Join(meta.Keywords, ", ")
	writer.SetInfo(meta.Title, meta.Subject, keywords, meta.Author, "textforge")
}

func (r *Renderer) ensureFontFamily(env catalog.Env) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	if r.family != nil {
		return r.family, nil
	}

	family := canvas.NewFontFamily("textforge-sheet")
	data, err := r.loadFontBytes(env)
	if err != nil {
		return nil, err
	}
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		// 实验字体无法解析时退回内置字体
		family = canvas.NewFontFamily(fonts.FallbackName)
		if fbErr := family.LoadFont(fonts.Fallback(), 0, canvas.FontRegular); fbErr != nil {
			return nil, fmt.Errorf("加载字体失败: %w", err)
		}
	}
	r.family = family
	return family, nil
}

func (r *Renderer) loadFontBytes(env catalog.Env) ([]byte, error) {
	if len(r.opts.FontData) > 0 {
		return r.opts.FontData, nil
	}
	if r.opts.FontPath != "" {
		data, err := os.ReadFile(r.opts.FontPath)
		if err != nil {
			return nil, fmt.Errorf("读取字体 %s 失败: %w", r.opts.FontPath, err)
		}
		return data, nil
	}
	if env.FontListFile != "" {
		if _, data, err := fonts.First(env.FontDir, env.FontListFile); err == nil {
			return data, nil
		}
	}
	return fonts.Fallback(), nil
}

// sheet 负责分页：内容超出页面底部时新建一页。
type sheet struct {
	w, h, margin float64
	pages        []*canvas.Canvas
	ctx          *canvas.Context
	cursorY      float64
}

func newSheet(w, h, margin float64) *sheet {
	s := &sheet{w: w, h: h, margin: margin}
	s.newPage()
	return s
}

func (s *sheet) newPage() {
	c := canvas.New(s.w, s.h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，y 向下
	s.pages = append(s.pages, c)
	s.ctx = ctx
	s.cursorY = s.margin
}

func (s *sheet) contentWidth() float64 { return s.w - 2*s.margin }

func (s *sheet) ensureSpace(height float64) {
	if s.cursorY > s.margin && s.cursorY+height > s.h-s.margin {
		s.newPage()
	}
}

// drawBlock 绘制标题底色条与正文；标题总是和至少一行正文在同一页。
func (s *sheet) drawBlock(b Block, titleFace, bodyFace *canvas.FontFace) {
	width := s.contentWidth()
	var body []TextLine
	for _, line := range b.Lines {
		body = append(body, greedyWrap(line, width-2*bandPadding, bodyFace.TextWidth)...)
	}
	titleHeight := titleFace.Metrics().LineHeight + 2*bandPadding
	lineHeight := bodyFace.Metrics().LineHeight

	total := titleHeight + float64(len(body))*lineHeight
	s.ensureSpace(min(total, titleHeight+lineHeight))

	s.ctx.SetFillColor(canvas.Hex("#eef2fb"))
	s.ctx.SetStrokeColor(canvas.Hex("#9aa5b8"))
	s.ctx.SetStrokeWidth(borderWidth)
	s.ctx.DrawPath(s.margin, s.cursorY, canvas.Rectangle(width, titleHeight))
	drawTextLine(s.ctx, titleFace, s.margin+bandPadding, s.cursorY+bandPadding, b.Title)
	s.cursorY += titleHeight

	for _, line := range body {
		s.ensureSpace(lineHeight)
		drawTextLine(s.ctx, bodyFace, s.margin+bandPadding, s.cursorY, line.Content)
		s.cursorY += lineHeight
	}
	s.cursorY += blockSpacing
}

// drawTextLine 以行顶部 top 加字体上升部得到基线位置。
func drawTextLine(ctx *canvas.Context, face *canvas.FontFace, x, top float64, content string) {
	if content == "" {
		return
	}
	baseline := top + face.Metrics().Ascent
	ctx.DrawText(x, baseline, canvas.NewTextLine(face, content, canvas.Left))
}
