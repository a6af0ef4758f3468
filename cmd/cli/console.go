package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/events"
	"github.com/keshon/botcore/internal/waiter"
)

// console feeds terminal lines to the dispatcher and the waiter.
type console struct {
	dispatcher *command.Dispatcher
	waiter     *waiter.Waiter
	actor      command.Actor
	loc        command.Location

	mu  sync.Mutex
	out io.Writer
	seq int
}

func newConsole(d *command.Dispatcher, w *waiter.Waiter, actor command.Actor, loc command.Location, out io.Writer) *console {
	return &console{dispatcher: d, waiter: w, actor: actor, loc: loc, out: out}
}

// SendVisible prints a reply.
func (c *console) SendVisible(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "bot> %s\n", strings.ReplaceAll(text, "\n", "\n     "))
	return err
}

func (c *console) nextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return strconv.Itoa(c.seq)
}

// run reads lines until in is exhausted or ctx is done, then waits for the
// commands still running.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			c.handle(ctx, line, &wg)
		}
	}
}

func (c *console) handle(ctx context.Context, line string, wg *sync.WaitGroup) {
	msg := events.Message{
		ID:        c.nextID(),
		AuthorID:  c.actor.ID,
		ChannelID: c.loc.ChannelID,
		GuildID:   c.loc.GuildID,
		Content:   line,
		Time:      time.Now(),
	}
	if err := c.waiter.Dispatch(ctx, msg); err != nil {
		return
	}

	text, ok := strings.CutPrefix(strings.TrimSpace(line), c.dispatcher.Prefix())
	if !ok || strings.TrimSpace(text) == "" {
		return
	}
	// commands may wait for later lines, so they must not block the reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		handled := c.dispatcher.Dispatch(ctx, command.Request{
			Text:     text,
			Actor:    c.actor,
			Location: c.loc,
			Sink:     c,
		})
		if !handled {
			_ = c.SendVisible(ctx, fmt.Sprintf("Unknown command. Try %shelp", c.dispatcher.Prefix()))
		}
	}()
}
