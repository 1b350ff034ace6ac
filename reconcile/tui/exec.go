package tui

import (
	"context"
	"errors"
	"io"

	"github.com/plenert/reconcile"
)

// pickCommand runs the account picker while the screen is suspended. It
// satisfies tea.ExecCommand.
type pickCommand struct {
	provider reconcile.Provider
	pick     PickFunc

	stdin  io.Reader
	stdout io.Writer

	account string
	err     error
}

func (c *pickCommand) Run() error {
	ctx := context.Background()
	accounts, err := c.provider.Accounts(ctx)
	if err != nil {
		c.err = err
		return nil
	}
	if len(accounts) == 0 {
		c.err = errors.New("no accounts found in ledger file")
		return nil
	}
	c.account, c.err = c.pick(ctx, accounts, c.stdin, c.stdout)
	return nil
}

func (c *pickCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *pickCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *pickCommand) SetStderr(io.Writer)   {}
