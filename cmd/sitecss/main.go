// Package main provides the sitecss CLI tool for building sites with
// compressed per-page stylesheets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yacobolo/sitecss"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		useColors := sitecss.ShouldUseColors(getBoolWithFallback("color", "color", false))
		fmt.Fprintf(os.Stderr, "%s %v\n", sitecss.RenderStyle(sitecss.StyleRed, "Error:", useColors), err)
		os.Exit(1)
	}
}
