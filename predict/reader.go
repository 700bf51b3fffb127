package predict

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rushteam/modelcon/pkg/textio"
)

// Line 是预测文件中的一行原文及其行号（从 1 开始）。
type Line struct {
	No   int
	Text string
}

// Reader 流式读取预测文件，不做解析；解析交给 worker 并发完成。
type Reader struct {
	sc     *bufio.Scanner
	source string
	lineNo int
}

// NewReader 创建预测文件读取器。source 仅用于错误信息。
func NewReader(r io.Reader, source string) *Reader {
	return &Reader{sc: textio.NewScanner(r), source: source}
}

// Source 返回输入来源名称。
func (r *Reader) Source() string { return r.source }

// Next 返回下一条非空行；读到末尾返回 ok=false。
func (r *Reader) Next() (Line, bool, error) {
	for r.sc.Scan() {
		r.lineNo++
		text := r.sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		return Line{No: r.lineNo, Text: text}, true, nil
	}
	if err := r.sc.Err(); err != nil {
		return Line{}, false, fmt.Errorf("read %s line %d: %w", r.source, r.lineNo+1, err)
	}
	return Line{}, false, nil
}

// ReadBatch 读取最多 n 行。返回空切片表示已读完。
func (r *Reader) ReadBatch(n int) ([]Line, error) {
	if n <= 0 {
		n = 1
	}
	batch := make([]Line, 0, n)
	for len(batch) < n {
		line, ok, err := r.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		batch = append(batch, line)
	}
	return batch, nil
}
