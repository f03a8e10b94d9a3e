// Package bootstrap runs the service lifecycle: it builds the logger from
// config, starts registered components in order and prints a startup
// summary. On SIGINT or SIGTERM it stops everything in reverse within a
// graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(serverComponent)
//	return app.Run(ctx)
package bootstrap
