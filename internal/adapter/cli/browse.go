package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/debounce"
	"github.com/warlaundry/washerman/internal/domain"
)

const browseHelp = `Commands:
  filter <all|pending|inprogress|complete>   switch the status filter
  search [text]                              search bag, student or order id (empty clears)
  next | prev | page <n>                     move between pages
  advance <id[,id...]>                       move bags one step forward
  retry                                      reload the list
  dismiss                                    hide the error banner
  quit                                       leave browse`

// syncWriter keeps debounced renders from interleaving with command output.
type syncWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

func (a *CLIAdapter) BrowseComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := &syncWriter{out: cmd.OutOrStdout()}
	errOut := &syncWriter{out: cmd.ErrOrStderr()}

	if err := ws.orders.Load(ctx); err != nil {
		a.log.Debug("browse load", zap.Error(err))
	}
	a.printView(out, ws.orders.View())

	search := debounce.New(a.opts.SearchDebounce, func(q string) {
		ws.orders.SetQuery(q)
		a.printView(out, ws.orders.View())
	})
	defer search.Stop()

	fmt.Fprintln(out, browseHelp)
	for {
		fmt.Fprint(out, "browse> ")
		line, ok := a.in.Next(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return a.in.Err()
		}
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		if verb == "search" || verb == "s" {
			search.Trigger(rest)
			continue
		}
		// anything else acts on the settled query
		search.Flush()

		if done := a.browseStep(ctx, out, errOut, ws, verb, rest); done {
			return nil
		}
	}
}

func (a *CLIAdapter) browseStep(ctx context.Context, out, errOut io.Writer, ws *workspace, verb, arg string) bool {
	switch verb {
	case "quit", "q", "exit":
		return true
	case "filter", "f":
		ws.orders.SetFilter(domain.ParseFilter(arg))
	case "next", "n":
		if !ws.orders.NextPage() {
			fmt.Fprintln(errOut, "Already on the last page.")
			return false
		}
	case "prev", "p":
		if !ws.orders.PrevPage() {
			fmt.Fprintln(errOut, "Already on the first page.")
			return false
		}
	case "page", "g":
		n, err := strconv.Atoi(arg)
		if err != nil || !ws.orders.GoTo(n) {
			fmt.Fprintln(errOut, ValidationFailedError(fmt.Sprintf("no page '%s'", arg)))
			return false
		}
	case "advance", "a":
		ids, err := parseOrderIDs(arg)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return false
		}
		if err := a.advance(ctx, out, errOut, ws, ids); err != nil {
			fmt.Fprintln(errOut, err)
		}
	case "retry", "r":
		if err := ws.orders.Retry(ctx); err != nil {
			fmt.Fprintln(errOut, mapError(err, app.MsgLoadOrders))
		}
	case "dismiss", "d":
		ws.orders.ClearError()
	case "help", "h":
		fmt.Fprintln(out, browseHelp)
		return false
	default:
		fmt.Fprintf(errOut, "unknown command '%s', type help\n", verb)
		return false
	}
	a.printView(out, ws.orders.View())
	return false
}
