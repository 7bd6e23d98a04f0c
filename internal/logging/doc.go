// Package logging is a thin layer over zap.
//
// Entries go to stderr, leaving stdout to the run summary, and can be
// mirrored to OpenTelemetry through otelzap. Each method takes a context
// and adds the run.id, stage and trace fields it carries. Field names such
// as token or authorization, and values that look like credentials, are
// masked by the encoder before anything is written. A Trace level sits
// below Debug for per-file decisions.
//
// Init configures the process logger once; later calls return it unchanged.
//
//	logger, err := logging.Init(cfg, nil)
//	if err != nil {
//		return err
//	}
//	defer logger.Sync()
//	logger.Info(logging.WithRunID(ctx, id), "clone finished", zap.Int("sources", n))
//
// NewTestLogger captures entries in memory for assertions.
package logging
