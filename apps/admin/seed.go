package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/eliseea/mobility/storage/database"
)

// seed loads the demo fixtures. Records with the same IDs are overwritten,
// so an interactive session is asked for confirmation unless force is set.
func (cli *commandLine) seed(force bool) error {
	if !force && isTerminalFunc(int(os.Stdin.Fd())) {
		fmt.Fprint(cli.out, "Existing demo records will be overwritten. Continue? [y/N] ")
		answer, err := bufio.NewReader(cli.in).ReadString('\n')
		if err != nil && answer == "" {
			return errAborted
		}
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			return errAborted
		}
	}

	fixtures := database.DemoFixtures()
	if err := cli.seedFunc(context.Background(), fixtures); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cli.out, "seeded %d users, %d mobilities, %d checklist items, %d journal entries\n",
		len(fixtures.Users), len(fixtures.Mobilities), len(fixtures.Checklist), len(fixtures.Journal))
	return err
}
