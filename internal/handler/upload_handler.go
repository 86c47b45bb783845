package handler

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// ServeUpload 提供已上传的附件。非图片一律作为下载返回，
// 并禁止浏览器嗅探类型或在站点源下执行内容。
func (a *API) ServeUpload(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filepath"), "/")
	target, ok := a.uploads.LocalPath(name)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}

	header := c.Writer.Header()
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if !a.uploads.Inline(name) {
		header.Set("Content-Disposition", "attachment")
	}
	c.File(target)
}
