// Package logger wraps zerolog behind the small logging surface the
// crawler's components share.
//
// Components take a Logger in their constructors and treat nil as
// "use the process-wide logger" built by Initialize. Tests pass
// NewNopLogger().
//
//	log := logger.GetLogger().WithField("component", "client")
//	log.InfoWithFields("page fetched", map[string]interface{}{
//		"page":  3,
//		"items": 20,
//	})
package logger
