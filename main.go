// shellkeep keeps named shell sessions alive across disconnects.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shellkeep/cmd"
)

// signalCause records which signal cancelled the run.
type signalCause struct{ sig syscall.Signal }

func (s signalCause) Error() string { return "received " + s.sig.String() }

func main() {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		if sig, ok := (<-sigs).(syscall.Signal); ok {
			cancel(signalCause{sig})
		}
	}()

	err := cmd.Execute(ctx, os.Args[1:])

	// The daemon has already removed its socket by the time Execute
	// returns; exit the way a signalled process would.
	var cause signalCause
	if errors.As(context.Cause(ctx), &cause) {
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "shellkeep: %v\n", err)
		}
		os.Exit(128 + int(cause.sig))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "shellkeep: %v\n", err)
		os.Exit(1)
	}
}
