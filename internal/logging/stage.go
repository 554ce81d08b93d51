package logging

// Stage logs the start of a validation stage and returns a function that
// logs its terminal outcome, e.g. ok, SKIPPED or FAILED.
func Stage(l Logger, message string, args ...any) func(outcome string, args ...any) {
	l.Info("Validation: "+message, args...)
	return func(outcome string, more ...any) {
		l.Info("Validation: "+message+" ... "+outcome, append(append([]any{}, args...), more...)...)
	}
}
