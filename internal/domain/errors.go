package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrUnknownFeed = errors.New("unknown feed")
	// ErrNoHeader 在前若干行内找不到可识别的表头
	ErrNoHeader = errors.New("no recognizable header row")
	// ErrMissingColumns 表头缺少 feed 必需的列
	ErrMissingColumns = errors.New("required columns missing")
	ErrEmptyInput     = errors.New("input contains no data rows")
)

// ErrShuttingDown 服务正在关闭，拒绝新的导入
var ErrShuttingDown = errors.New("server is shutting down")
