package handler

type ContextKey string

var (
	SubCtxKey         ContextKey = "sub"
	CapacityRecordCtx ContextKey = "capacityRecord"
	ReportOptionsCtx  ContextKey = "reportOptions"
)
