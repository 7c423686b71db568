// Package shutdown coordinates graceful process termination.
//
// A Handler waits for SIGINT/SIGTERM (or context cancellation), then runs
// the registered hooks in reverse registration order under a timeout:
//
//	h := shutdown.NewHandler(15*time.Second, shutdown.WithLogger(logger))
//	h.OnShutdown("http", srv.Shutdown)
//	h.OnShutdown("storage", closeTiers)
//	err := h.Wait(ctx)
package shutdown
