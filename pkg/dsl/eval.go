package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("user", cel.DynType),
		cel.Variable("params", cel.DynType),
		cel.Variable("now", cel.IntType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的布尔表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可被多个 goroutine 并发 Evaluate。
//
// 可用变量：
//   - item: index / id / types / score / start_time / end_time / has_start_time / has_end_time
//   - user: index
//   - params: 任务参数（app_id、algo_id 等）
//   - now: 当前时间（Unix 毫秒）
//
// 示例：
//   - `!item.has_end_time || item.end_time > now` → 未过期
//   - `"movie" in item.types && item.score > 0.5`
type Expr struct {
	source string
	prg    cel.Program
}

// Compile 编译表达式，要求返回布尔值。
func Compile(expr string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Expr{source: expr, prg: prg}, nil
}

// String 返回表达式原文。
func (e *Expr) String() string { return e.source }

// Evaluate 执行表达式，返回布尔结果。
func (e *Expr) Evaluate(input map[string]interface{}) (bool, error) {
	out, _, err := e.prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}
