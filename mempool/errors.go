package mempool

import "fmt"

// Kind tags every admission failure, matching the validator package's
// tagged-error convention (never a bare string).
type Kind string

const (
	KindInvalidTransaction Kind = "InvalidTransaction"
	KindMultiKernel        Kind = "MultiKernel"
	KindFeeTooLow          Kind = "FeeTooLow"
	KindWeightTooLarge     Kind = "WeightTooLarge"
	KindUnknownInput       Kind = "UnknownInput"
	KindImmatureSpend      Kind = "ImmatureSpend"
	KindDuplicateExcess    Kind = "DuplicateExcess"
	KindOutbidByConflict   Kind = "OutbidByConflict"
)

// Error is the mempool's single error type.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func fail(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }
