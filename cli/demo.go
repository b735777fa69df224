// ABOUTME: Demo backend subcommand
// ABOUTME: Serves the seeded in-memory backend so the client works offline
package cli

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/harperreed/telemsg/demoserver"
)

// DemoCommand runs the demo backend until the process is stopped.
func DemoCommand(logger *log.Logger, args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	port := fs.Int("port", 8080, "Port to listen on")
	secret := fs.String("secret", "", "JWT signing secret (default: built-in demo secret)")
	_ = fs.Parse(args)

	srv, err := demoserver.New(demoserver.Options{Secret: *secret, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to start demo backend: %w", err)
	}

	addr := fmt.Sprintf(":%d", *port)
	fmt.Printf("✓ Demo backend on http://localhost%s/api\n", addr)
	fmt.Printf("  Users: zhangsan (admin), lisi, wangwu, zhaoliu (suspended)\n")
	fmt.Printf("  Password: %s\n", demoserver.DemoPassword)
	return srv.Run(addr)
}
