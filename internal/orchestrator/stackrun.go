package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"fstack/internal/engine"
	"fstack/internal/logging"
	"fstack/internal/state"
)

// ProcessStack drives every enabled method for one stack directory through
// the pending, running, done/failed lifecycle. Failures are isolated per
// method: a failed or timed-out invocation never prevents the remaining
// methods from being attempted.
func (o *Orchestrator) ProcessStack(ctx context.Context, dir string) StackResult {
	result := StackResult{Dir: dir}
	logger := o.logger.With(logging.Args(logging.String(logging.FieldStack, filepath.Base(dir)))...)

	store, err := state.Open(dir, o.logger)
	if err != nil {
		result.Err = err
		logger.Error("cannot open processing state", logging.Args(logging.Error(err))...)
		return result
	}

	members, err := stackMembers(dir)
	if err != nil {
		result.Err = err
		logger.Error("cannot list stack members", logging.Args(logging.Error(err))...)
		return result
	}
	if len(members) < 2 {
		result.Err = fmt.Errorf("stack %s has %d image(s), need at least 2", dir, len(members))
		logger.Warn("skipping undersized stack", logging.Args(logging.Int("members", len(members)))...)
		return result
	}

	outDir := filepath.Join(dir, o.opts.OutputDirName)
	stackName := filepath.Base(dir)

	for _, method := range o.opts.Methods {
		switch method {
		case state.MethodA, state.MethodB, state.MethodC:
		default:
			continue
		}
		outcome := o.runMethod(ctx, logger, store, method, members, o.artifactPath(outDir, stackName, method))
		result.Outcomes = append(result.Outcomes, outcome)
	}

	if o.opts.CombineAB {
		outcome := o.runCombine(ctx, logger, store, outDir, stackName)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result
}

func (o *Orchestrator) artifactPath(outDir, stackName string, method state.Method) string {
	return filepath.Join(outDir, fmt.Sprintf("%s_%s.%s", stackName, method, o.opts.Params.OutputFormat))
}

func (o *Orchestrator) runMethod(ctx context.Context, logger *slog.Logger, store *state.Store, method state.Method, inputs []string, outPath string) MethodOutcome {
	if !o.opts.Force && store.Status(method) == state.StatusDone {
		record, _ := store.Get(method)
		logger.Info("method already done, skipping",
			logging.Args(logging.String(logging.FieldMethod, string(method)))...)
		return MethodOutcome{Method: method, Status: state.StatusDone, SkippedResume: true, OutputPath: record.OutputPath}
	}

	return o.invoke(ctx, logger, store, method, engine.Request{
		Method:     method,
		InputPaths: inputs,
		OutputPath: outPath,
		Params:     o.opts.Params,
	})
}

// runCombine attempts the AB combination. It is attempted only when methods A
// and B both reached done, in this run or a prior one; a failed or disabled
// prerequisite records AB as failed without invoking the engine.
func (o *Orchestrator) runCombine(ctx context.Context, logger *slog.Logger, store *state.Store, outDir, stackName string) MethodOutcome {
	if !o.opts.Force && store.Status(state.MethodAB) == state.StatusDone {
		record, _ := store.Get(state.MethodAB)
		logger.Info("combination already done, skipping")
		return MethodOutcome{Method: state.MethodAB, Status: state.StatusDone, SkippedResume: true, OutputPath: record.OutputPath}
	}

	if store.Status(state.MethodA) != state.StatusDone || store.Status(state.MethodB) != state.StatusDone {
		reason := fmt.Sprintf("precondition not met: A=%s, B=%s", store.Status(state.MethodA), store.Status(state.MethodB))
		if err := store.Set(state.MethodAB, state.StatusFailed, "", reason); err != nil {
			logger.Error("record precondition failure", logging.Args(logging.Error(err))...)
		}
		logger.Warn("skipping combination", logging.Args(logging.String("reason", reason))...)
		return MethodOutcome{Method: state.MethodAB, Status: state.StatusFailed, Reason: reason}
	}

	inputs := make([]string, 0, 2)
	for _, base := range []state.Method{state.MethodA, state.MethodB} {
		record, _ := store.Get(base)
		path := record.OutputPath
		if path == "" {
			path = o.artifactPath(outDir, stackName, base)
		}
		inputs = append(inputs, path)
	}

	outcome := o.invoke(ctx, logger, store, state.MethodAB, engine.Request{
		// The combination is a method B pass over the A and B artifacts.
		Method:     state.MethodB,
		InputPaths: inputs,
		OutputPath: o.artifactPath(outDir, stackName, state.MethodAB),
		Params:     o.opts.Params,
	})
	outcome.Method = state.MethodAB
	return outcome
}

// invoke records running before the engine call and the terminal status
// after, so a crash mid-invocation leaves a retryable running entry rather
// than a phantom done.
func (o *Orchestrator) invoke(ctx context.Context, logger *slog.Logger, store *state.Store, recordAs state.Method, req engine.Request) MethodOutcome {
	methodLogger := logger.With(logging.Args(logging.String(logging.FieldMethod, string(recordAs)))...)

	if err := store.Set(recordAs, state.StatusRunning, "", ""); err != nil {
		methodLogger.Error("cannot persist running state, not invoking engine", logging.Args(logging.Error(err))...)
		return MethodOutcome{Method: recordAs, Status: state.StatusFailed, Reason: err.Error()}
	}

	if err := o.client.Invoke(ctx, req); err != nil {
		if setErr := store.Set(recordAs, state.StatusFailed, "", err.Error()); setErr != nil {
			methodLogger.Error("record failure", logging.Args(logging.Error(setErr))...)
		}
		methodLogger.Warn("method failed", logging.Args(logging.Error(err))...)
		return MethodOutcome{Method: recordAs, Status: state.StatusFailed, Reason: err.Error()}
	}

	if err := store.Set(recordAs, state.StatusDone, req.OutputPath, ""); err != nil {
		methodLogger.Error("record completion", logging.Args(logging.Error(err))...)
		return MethodOutcome{Method: recordAs, Status: state.StatusFailed, Reason: err.Error()}
	}
	return MethodOutcome{Method: recordAs, Status: state.StatusDone, OutputPath: req.OutputPath}
}
