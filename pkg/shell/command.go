package shell

import (
	"context"
	"os/exec"
)

// Command - exec.Cmd that can be waited from many goroutines and closed.
// Done and Wait return only after process exit and all output copied.
type Command struct {
	*exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewCommand(s string) *Command {
	ctx, cancel := context.WithCancel(context.Background())
	args := QuoteSplit(s)
	if len(args) == 0 {
		args = []string{""} // exec will fail on Start
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.SysProcAttr = procAttr
	return &Command{Cmd: cmd, cancel: cancel, done: make(chan struct{})}
}

func (c *Command) Start() error {
	if err := c.Cmd.Start(); err != nil {
		c.cancel()
		return err
	}

	go func() {
		c.err = c.Cmd.Wait()
		c.cancel()
		close(c.done)
	}()

	return nil
}

func (c *Command) Wait() error {
	<-c.done
	return c.err
}

func (c *Command) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	return c.Wait()
}

func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Close kills the process, Wait still reports its exit
func (c *Command) Close() error {
	c.cancel()
	return nil
}
