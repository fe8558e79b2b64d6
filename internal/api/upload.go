package api

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"

	"portfolioParadise/internal/portfolio"
)

// multipartOverhead 为 multipart 边界与表单头预留的字节数。
const multipartOverhead = 1 << 20

// virusScanner 在文件写入对象存储前检查内容。
type virusScanner interface {
	Scan(r io.Reader) (clean bool, err error)
}

type clamdScanner struct {
	addr string
}

// newVirusScanner 在未配置 clamd 地址时返回 nil，上传将跳过扫描。
func newVirusScanner(addr string) virusScanner {
	if addr == "" {
		return nil
	}
	return clamdScanner{addr: addr}
}

func (s clamdScanner) Scan(r io.Reader) (bool, error) {
	abortChan := make(chan bool)
	defer close(abortChan)

	results, err := clamd.NewClamd(s.addr).ScanStream(r, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	clean := true
	for result := range results {
		if result.Status != clamd.RES_OK {
			clean = false
		}
	}
	return clean, nil
}

// readUpload 读取表单中的 file 字段，扫描通过后重新打开交给服务层。
// 返回 false 时已写入响应。
func readUpload(c *gin.Context, scanner virusScanner) (portfolio.Upload, func(), bool) {
	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return portfolio.Upload{}, nil, false
	}

	if scanner != nil {
		if !scanFormFile(c, scanner, file) {
			return portfolio.Upload{}, nil, false
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return portfolio.Upload{}, nil, false
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	up := portfolio.Upload{
		FileName:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Body:        reader,
	}
	return up, func() { _ = reader.Close() }, true
}

func scanFormFile(c *gin.Context, scanner virusScanner, file *multipart.FileHeader) bool {
	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return false
	}
	defer reader.Close()

	clean, err := scanner.Scan(reader)
	if err != nil {
		respondError(c, fmt.Errorf("scan file: %w", err))
		return false
	}
	if !clean {
		BadRequest(c, "malicious file detected")
		return false
	}
	return true
}
