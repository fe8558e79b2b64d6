// Package sanitize 清理学生提交的富文本页面内容。
package sanitize

import "github.com/microcosm-cc/bluemonday"

// HTML 使用 bluemonday 的 UGC 策略，保留常见排版标签，移除脚本、事件属性与危险链接。
// 构造后可并发使用。
type HTML struct {
	policy *bluemonday.Policy
}

func NewHTML() *HTML {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return &HTML{policy: p}
}

func (h *HTML) Sanitize(s string) string {
	return h.policy.Sanitize(s)
}
