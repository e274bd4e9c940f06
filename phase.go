package gatekeeper

// Phase is a named checkpoint in the SMTP conversation at which registered
// handlers run. The built-in vocabulary below covers a standard conversation;
// deployments can admit additional phases with [WithPhases].
type Phase string

const (
	PhaseConnect  Phase = "connect"
	PhaseHelo     Phase = "helo"
	PhaseEhlo     Phase = "ehlo"
	PhaseMail     Phase = "mail"
	PhaseRcpt     Phase = "rcpt"
	PhaseData     Phase = "data"
	PhaseDataPost Phase = "data_post"
	PhaseQuit     Phase = "quit"
)

// BuiltinPhases returns the phases every engine accepts registrations for,
// in protocol order.
func BuiltinPhases() []Phase {
	return []Phase{PhaseConnect, PhaseHelo, PhaseEhlo, PhaseMail, PhaseRcpt, PhaseData, PhaseDataPost, PhaseQuit}
}
