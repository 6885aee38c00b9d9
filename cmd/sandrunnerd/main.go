// Command sandrunnerd validates runner manifests and executes submissions
// inside a bubblewrap sandbox.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// version, commit, and date are set via -ldflags at build time.
var (
	version = "source"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	os.Exit(Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh))
}
