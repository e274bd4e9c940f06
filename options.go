package gatekeeper

// AllowListFunc decides whether a freshly accepted connection is on the
// allow list. Allow-listed connections are immune from the start, independent
// of any score they might accumulate.
type AllowListFunc func(conn *Connection) bool

type options struct {
	wake        WakeProvider
	allowList   AllowListFunc
	karma       *KarmaThresholds
	extraPhases []Phase
}

// Option configures an [Engine].
type Option func(*options)

// WithWakeProvider sets the timer source used for suspensions. The default
// uses real timers.
func WithWakeProvider(p WakeProvider) Option {
	return func(o *options) { o.wake = p }
}

// WithAllowList installs a predicate that marks matching connections immune
// the moment they are created.
func WithAllowList(f AllowListFunc) Option {
	return func(o *options) { o.allowList = f }
}

// WithKarmaThresholds enables score-derived flags: a connection whose score
// reaches immune or above becomes immune, one whose score reaches naughty or
// below is marked naughty. Without this option the score is informational
// only.
func WithKarmaThresholds(immune, naughty int) Option {
	return func(o *options) { o.karma = &KarmaThresholds{Immune: immune, Naughty: naughty} }
}

// WithPhases admits additional phase names beyond [BuiltinPhases].
// Registrations for phases that were not admitted fail with a
// [ConfigurationError].
func WithPhases(phases ...Phase) Option {
	return func(o *options) { o.extraPhases = append(o.extraPhases, phases...) }
}
