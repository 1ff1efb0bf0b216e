// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	return &Application{
		app: fx.New(modules...),
	}
}

// Err returns the error, if any, hit while building the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

// Run starts the application and blocks until a component shuts it down or ctx is done,
// then stops it. A non-zero shutdown exit code is reported as an error.
func (a *Application) Run(ctx context.Context) error {
	startCtx, cancel := context.WithTimeout(context.Background(), a.app.StartTimeout())
	err := a.app.Start(startCtx)
	cancel()
	if err != nil {
		return err
	}

	exitCode := 0
	select {
	case sig := <-a.app.Wait():
		exitCode = sig.ExitCode
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), a.app.StopTimeout())
	defer cancel()
	if err := a.app.Stop(stopCtx); err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("application exited with code %d", exitCode)
	}

	return nil
}
