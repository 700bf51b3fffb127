// Package textio 提供按行读取输入文件的工具，供索引加载与预测文件解析复用。
package textio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// MaxLineSize 是单行允许的最大字节数。预测行可能包含大量候选，默认 64KB 不够用。
const MaxLineSize = 64 * 1024 * 1024

// NewScanner 创建一个放大了缓冲区的行扫描器。
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return sc
}

// LineFunc 处理单行内容；lineNo 从 1 开始。
type LineFunc func(lineNo int, line string) error

// ForEachLine 逐行读取 r，跳过空行。fn 返回错误时立即停止。
// 每 1024 行检查一次 ctx。
func ForEachLine(ctx context.Context, r io.Reader, fn LineFunc) error {
	sc := NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo&1023 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan line %d: %w", lineNo+1, err)
	}
	return nil
}
