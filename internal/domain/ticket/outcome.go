package ticket

// Outcome は入場検証の結果
type Outcome int

const (
	Admit Outcome = iota
	BadSignature
	UnknownTicket
	Mismatch
	AlreadyUsed
	NotYetOpen
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case BadSignature:
		return "bad_signature"
	case UnknownTicket:
		return "unknown_ticket"
	case Mismatch:
		return "mismatch"
	case AlreadyUsed:
		return "already_used"
	case NotYetOpen:
		return "not_yet_open"
	}
	return "unknown"
}

// IsIntegrityFailure は改ざんが疑われる結果かを返す
func (o Outcome) IsIntegrityFailure() bool {
	return o == BadSignature || o == Mismatch
}
