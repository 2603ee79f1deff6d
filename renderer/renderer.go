package renderer

import "github.com/ByLCY/textforge/plan"

// Renderer 将编译后的计划输出为便于人工审阅的文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(p *plan.Plan) ([]byte, error)
}
