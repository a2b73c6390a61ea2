// Package app assembles the napsidx runtime: configuration, logging,
// telemetry, the pipeline manager and the query API server.
//
// A command builds one Application, runs pipeline steps or serves the
// API, and closes it:
//
//	a, err := app.New(app.Options{ConfigFile: path})
//	if err != nil {
//	    return err
//	}
//	defer a.Close(ctx)
//	resp, err := a.RunSteps(ctx, operations.OperationRequest{Steps: ids}, false)
//
// Serve runs the HTTP server and a shutdown watcher in an errgroup; the
// server stops when the context is cancelled.
package app
