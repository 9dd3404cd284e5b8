package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/stsctl/internal/protocol"
)

const replHelp = `commands:
  <command> [parameter]   run a daemon command
  values <command>        run a command and print its numeric reply
  list                    list known commands
  version                 print the daemon version
  help                    show this help
  quit                    leave the console`

// runREPL reads lines until EOF or quit. Command errors are printed and
// the loop continues.
func runREPL(ctx context.Context, client *protocol.Client, lines lineSource, out io.Writer) error {
	defer lines.Close()
	fmt.Fprintf(out, "stsctl console for %s (help for commands)\n", client.Config().Address())

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := lines.GetLine("sts> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, replHelp)
		case "list":
			if err := printCommands(client, out); err != nil {
				return err
			}
		case "version":
			v, err := client.Version(ctx)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			fmt.Fprintln(out, v)
		case "values":
			if len(fields) < 2 {
				fmt.Fprintln(out, "error: values needs a command")
				continue
			}
			if err := execute(ctx, client, fields[1:], true, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		default:
			if err := execute(ctx, client, fields, false, out); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}
