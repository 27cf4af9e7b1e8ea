package contracts

// OutcomeKind classifies the result of one unit of work
// ⭐ SSOT: 작업 결과 분류는 이 열거형 하나로만 표현
type OutcomeKind string

const (
	OutcomeSuccess            OutcomeKind = "success"
	OutcomeInsufficientData   OutcomeKind = "insufficient_data"
	OutcomeValidationRejected OutcomeKind = "validation_rejected"
	OutcomeSourceFailure      OutcomeKind = "source_failure"
	OutcomeComputationError   OutcomeKind = "computation_error"
)

// OutcomeKinds lists every kind in display order
var OutcomeKinds = []OutcomeKind{
	OutcomeSuccess,
	OutcomeInsufficientData,
	OutcomeValidationRejected,
	OutcomeSourceFailure,
	OutcomeComputationError,
}

// FetchOutcome is the result of fetching one symbol
type FetchOutcome struct {
	Symbol string      `json:"symbol"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
	Rows   int         `json:"rows"`
	Path   string      `json:"path,omitempty"`
}

// OK reports whether the series was persisted
func (o FetchOutcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// CountByKind tallies outcomes per kind
func CountByKind(outcomes map[string]FetchOutcome) map[OutcomeKind]int {
	out := make(map[OutcomeKind]int)
	for _, o := range outcomes {
		out[o.Kind]++
	}
	return out
}
