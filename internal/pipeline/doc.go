// Package pipeline runs one improvement pass over a target repository.
//
// A run moves through fixed stages, each attempted exactly once:
//
//	clone -> synthesize -> generate -> apply
//
// and always finishes with cleanup of every working copy the clone stage
// produced, whatever happened before. The orchestrator owns sequencing,
// error classification and cleanup; cloning, knowledge synthesis,
// improvement generation and committing are delegated to the collaborators
// declared in collaborators.go.
//
// # Errors
//
// Construction (New, NewRequest) returns *ConfigError. Run never returns an
// error; failures are reported in the Result:
//
//   - a clone set whose shape does not match the request is an integrity failure (*IntegrityError)
//   - any collaborator error or panic is an operational failure (*OperationalError)
//   - cleanup errors are logged and counted, never reported
//
// # Usage
//
//	req, err := pipeline.NewRequest(target, sources, pipeline.WithBranch("bot/tidy"))
//	if err != nil {
//	    return err
//	}
//	orch, err := pipeline.New(req, buildCollaborators, pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	res := orch.Run(ctx)
package pipeline
