package service

// RowOutcome 单行处理结果
type RowOutcome string

const (
	OutcomeImported  RowOutcome = "imported"
	OutcomeMalformed RowOutcome = "malformed"
	OutcomeLookup    RowOutcome = "lookup_failed"
	OutcomeUnmatched RowOutcome = "unmatched"
)

// Progress 一次批处理中单行的进度
type Progress struct {
	RunID   string
	Index   int // 从 1 开始
	Total   int
	Title   string
	Outcome RowOutcome
}

// ProgressObserver 接收逐行进度（CLI 进度输出、测试断言）
type ProgressObserver interface {
	OnProgress(p Progress)
}

// NoOpObserver 丢弃进度
type NoOpObserver struct{}

func (NoOpObserver) OnProgress(Progress) {}

// ObserverFunc 函数形式的 ProgressObserver
type ObserverFunc func(p Progress)

func (f ObserverFunc) OnProgress(p Progress) { f(p) }
