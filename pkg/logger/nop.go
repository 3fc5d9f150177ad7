package logger

// NewNopLogger returns a logger that discards everything. Tests hand
// it to components so assertions stay about behavior, not output.
func NewNopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string) {}
func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(string) {}

func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}

func (nopLogger) WithField(string, interface{}) Logger     { return nopLogger{} }
func (nopLogger) WithFields(map[string]interface{}) Logger { return nopLogger{} }
func (nopLogger) WithError(error) Logger                   { return nopLogger{} }
