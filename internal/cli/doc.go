// Package cli provides binary discovery, command building, and version
// banner validation for the CQP backend.
//
// # Binary Discovery
//
// The Discoverer interface locates the cqp binary:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    BinaryPath: "",         // Optional explicit path
//	    Logger:     slog.Default(),
//	})
//	path, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.BinaryPath (if provided, nothing else is tried)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/local/cwb/bin, /usr/bin)
//
// # Version Banner
//
// In child mode the backend prints a banner such as
//
//	CQP version 2.2.b41 2020-01-01
//
// as its first line. ParseBanner extracts the version and Version.Supported
// checks it against MinimumVersion (2.2.b41), the first release with query locks.
//
// # Command Building
//
//	args := cli.BuildArgs(options)
//	env := cli.BuildEnvironment(options)
package cli
