// Command orgonboard onboards every active AWS Organizations account into Security Hub under
// the delegated administrator account.
//
// Usage:
//
//	orgonboard [flags] <delegated_admin_account_id> <cross_account_role_name> [region]
//
// Example:
//
//	orgonboard 030172395295 CrossAccount-SecurityOps us-east-1
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, defaultDeps())
	stop()

	os.Exit(code)
}
