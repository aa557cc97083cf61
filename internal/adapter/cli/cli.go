package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/warlaundry/washerman/internal/app"
	"github.com/warlaundry/washerman/internal/dashboard"
	"github.com/warlaundry/washerman/internal/debounce"
	"github.com/warlaundry/washerman/internal/domain"
	"github.com/warlaundry/washerman/internal/metrics"
	"github.com/warlaundry/washerman/internal/session"
)

const msgLoginFailed = "Login failed"

type Backend interface {
	Login(ctx context.Context, username, password string) (token string, profile domain.Profile, err error)
	ChangePassword(ctx context.Context, token, current, next string) error
	Orders(token string) app.OrderService
	Students(token string) app.StudentService
}

type Options struct {
	PageSize        int
	RefreshInterval time.Duration
	SearchDebounce  time.Duration
	// Transitions builds the status command for a signed-in order service.
	Transitions func(app.OrderService) *app.Transitioner
	Metrics     metrics.MetricsProvider
	Logger      *zap.Logger
}

// workspace is what one login owns until logout.
type workspace struct {
	orderSvc    app.OrderService
	transitions *app.Transitioner
	orders      *app.OrdersPage
	students    *app.StudentDirectory
}

type CLIAdapter struct {
	backend Backend
	guard   *session.Guard
	opts    Options
	in      *lineReader
	log     *zap.Logger

	mu        sync.Mutex
	sessionID string
	ws        *workspace
}

func NewCLIAdapter(backend Backend, guard *session.Guard, in io.Reader, opts Options) *CLIAdapter {
	if opts.PageSize <= 0 {
		opts.PageSize = app.DefaultPageSize
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = dashboard.DefaultInterval
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = debounce.DefaultDelay
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoOpProvider()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Transitions == nil {
		m, log := opts.Metrics, opts.Logger
		opts.Transitions = func(orders app.OrderService) *app.Transitioner {
			return app.NewTransitioner(orders, nil, m, log)
		}
	}
	return &CLIAdapter{
		backend: backend,
		guard:   guard,
		opts:    opts,
		in:      newLineReader(in),
		log:     opts.Logger.Named("cli"),
	}
}

func (a *CLIAdapter) RegisterCommands(rootCmd *cobra.Command) {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Signs in with washerman credentials.",
		RunE:  a.LoginComm,
	}
	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(loginCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Ends the current session.",
		RunE:  a.LogoutComm,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "whoami",
		Short: "Shows the signed-in profile.",
		RunE:  a.WhoAmIComm,
	})

	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Shows bag counts and the most recent bags.",
		RunE:  a.DashboardComm,
	}
	dashboardCmd.Flags().BoolP("watch", "w", false, "Keep refreshing until Enter is pressed")
	dashboardCmd.Flags().IntP("count", "", 0, "Stop watching after N updates")
	rootCmd.AddCommand(dashboardCmd)

	listOrdersCmd := &cobra.Command{
		Use:   "list-orders",
		Short: "Lists bags with filter, search and paging.",
		RunE:  a.ListOrdersComm,
	}
	listOrdersCmd.Flags().StringP("filter", "", "all", "One of: all, pending, inprogress, complete")
	listOrdersCmd.Flags().StringP("search", "", "", "Bag number, student name or exact order id")
	listOrdersCmd.Flags().IntP("page", "", 1, "Page number")
	rootCmd.AddCommand(listOrdersCmd)

	advanceCmd := &cobra.Command{
		Use:   "advance",
		Short: "Moves bags one step forward (to start -> washing -> done).",
		RunE:  a.AdvanceComm,
	}
	advanceCmd.Flags().StringP("order-ids", "", "", "Comma-separated list of order IDs")
	advanceCmd.MarkFlagRequired("order-ids")
	rootCmd.AddCommand(advanceCmd)

	setStatusCmd := &cobra.Command{
		Use:   "set-status",
		Short: "Sets the next status of one bag explicitly.",
		RunE:  a.SetStatusComm,
	}
	setStatusCmd.Flags().Int64P("order-id", "", 0, "ID of the order")
	setStatusCmd.Flags().StringP("status", "", "", "Target status: inprogress or complete")
	setStatusCmd.MarkFlagRequired("order-id")
	setStatusCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(setStatusCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "browse",
		Short: "Interactive order list with live search.",
		RunE:  a.BrowseComm,
	})

	studentsCmd := &cobra.Command{
		Use:   "students",
		Short: "Looks students up by name, roll or room number.",
		RunE:  a.StudentsComm,
	}
	studentsCmd.Flags().StringP("search", "", "", "Search text")
	rootCmd.AddCommand(studentsCmd)

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Shows the profile and changes the password.",
		RunE:  a.SettingsComm,
	}
	settingsCmd.Flags().BoolP("change-password", "", false, "Change the password")
	settingsCmd.Flags().StringP("current", "", "", "Current password")
	settingsCmd.Flags().StringP("new", "", "", "New password (at least 6 characters)")
	rootCmd.AddCommand(settingsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "exit",
		Short: "Exits the panel.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Exiting washerman panel.")
		},
	})
}

// Serve runs the prompt loop. newRoot builds a fresh command tree per line so flags never leak between runs.
func (a *CLIAdapter) Serve(ctx context.Context, newRoot func() *cobra.Command, out, errOut io.Writer) error {
	fmt.Fprintln(out, "Welcome to the WAR washerman panel.")
	for {
		fmt.Fprint(out, "washerman> ")
		line, ok := a.in.Next(ctx)
		if !ok {
			break
		}
		if line == "" {
			continue
		}
		if line == "exit" {
			fmt.Fprintln(out, "Exiting washerman panel.")
			return nil
		}

		root := newRoot()
		root.SetArgs(strings.Fields(line))
		root.SetOut(out)
		root.SetErr(errOut)
		if err := root.ExecuteContext(ctx); err != nil {
			a.log.Debug("command failed", zap.String("line", line), zap.Error(err))
			fmt.Fprintln(errOut, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return a.in.Err()
}

// Close drops the signed-in workspace.
func (a *CLIAdapter) Close() {
	a.setWorkspace("", nil)
}

func (a *CLIAdapter) setWorkspace(sessionID string, ws *workspace) {
	a.mu.Lock()
	old := a.ws
	a.sessionID, a.ws = sessionID, ws
	a.mu.Unlock()
	if old != nil {
		old.orders.Close()
	}
}

// current resolves the session the way the web guard does.
func (a *CLIAdapter) current(ctx context.Context) (*workspace, session.Session, error) {
	a.mu.Lock()
	id, ws := a.sessionID, a.ws
	a.mu.Unlock()

	res := a.guard.Resolve(ctx, id)
	switch res.State {
	case session.StateAuthenticated:
		return ws, res.Session, nil
	case session.StateUnauthenticated:
		if id != "" {
			a.setWorkspace("", nil)
		}
		return nil, session.Session{}, UnauthenticatedError("please log in first")
	default:
		return nil, session.Session{}, AuthPendingError()
	}
}

func (a *CLIAdapter) newWorkspace(token string) *workspace {
	orders := a.backend.Orders(token)
	tr := a.opts.Transitions(orders)
	return &workspace{
		orderSvc:    orders,
		transitions: tr,
		orders:      app.NewOrdersPage(orders, tr, a.opts.PageSize, domain.FilterAll),
		students:    app.NewStudentDirectory(a.backend.Students(token)),
	}
}

func (a *CLIAdapter) LoginComm(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")
	ctx := cmd.Context()

	token, profile, err := a.backend.Login(ctx, username, password)
	if err != nil {
		return mapError(err, msgLoginFailed)
	}
	sess, err := a.guard.Establish(ctx, token, profile)
	if err != nil {
		return InternalError(err)
	}
	a.setWorkspace(sess.ID, a.newWorkspace(token))
	fmt.Fprintf(cmd.OutOrStdout(), "LOGGED_IN: %s\n", profile.Username)
	return nil
}

func (a *CLIAdapter) LogoutComm(cmd *cobra.Command, args []string) error {
	a.mu.Lock()
	id := a.sessionID
	a.mu.Unlock()

	if err := a.guard.End(cmd.Context(), id); err != nil {
		a.log.Warn("end session", zap.Error(err))
	}
	a.setWorkspace("", nil)
	fmt.Fprintln(cmd.OutOrStdout(), "LOGGED_OUT")
	return nil
}

func (a *CLIAdapter) WhoAmIComm(cmd *cobra.Command, args []string) error {
	_, sess, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	p := sess.Profile
	fmt.Fprintf(cmd.OutOrStdout(), "USER: %s NAME: %s EMAIL: %s ROLE: %s\n",
		p.Username, titled(p.Name), p.Email, p.Role)
	return nil
}

func (a *CLIAdapter) DashboardComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	watch, _ := cmd.Flags().GetBool("watch")
	count, _ := cmd.Flags().GetInt("count")
	out := cmd.OutOrStdout()

	opts := dashboard.Options{
		Interval: a.opts.RefreshInterval,
		Metrics:  a.opts.Metrics,
		Logger:   a.log.Named("dashboard"),
	}
	if !watch {
		agg := dashboard.New(ws.orderSvc, ws.transitions, opts)
		defer agg.Stop()
		if err := agg.Refresh(cmd.Context()); err != nil {
			return mapError(err, app.MsgLoadDashboard)
		}
		a.printSnapshot(out, agg.Snapshot())
		return nil
	}

	updates := make(chan dashboard.Snapshot, 1)
	opts.OnUpdate = func(s dashboard.Snapshot) {
		select {
		case updates <- s:
		default:
		}
	}
	agg := dashboard.New(ws.orderSvc, ws.transitions, opts)
	agg.Start(cmd.Context())
	defer agg.Stop()

	var input <-chan string
	if count <= 0 {
		input = a.in.Lines()
		fmt.Fprintln(out, "Watching the dashboard, press Enter to stop.")
	}

	for shown := 0; ; {
		select {
		case snap := <-updates:
			a.printSnapshot(out, snap)
			shown++
			if count > 0 && shown >= count {
				return nil
			}
		case <-input:
			return nil
		case <-cmd.Context().Done():
			return nil
		}
	}
}

func (a *CLIAdapter) printSnapshot(out io.Writer, snap dashboard.Snapshot) {
	if snap.Error != "" {
		fmt.Fprintf(out, "ERROR: %s (run dashboard again to retry)\n", snap.Error)
	}
	if !snap.Loaded {
		return
	}
	s := snap.Stats
	fmt.Fprintf(out, "TOTAL: %d TO_START: %d WASHING: %d DONE: %d\n",
		s.TotalOrders, s.PendingOrders, s.InProgressOrders, s.CompleteOrders)
	if len(snap.Recent) == 0 {
		fmt.Fprintln(out, "No bags yet.")
	}
	for _, o := range snap.Recent {
		fmt.Fprintf(out, "RECENT: %d BAG: %s STUDENT: %s STATUS: %s NEXT: %s\n",
			o.ID, o.BagNo, titled(o.StudentDisplayName()), o.Status.Label(), o.Status.ActionLabel())
	}
	if snap.ShowViewAll() {
		fmt.Fprintln(out, "VIEW_ALL: list-orders")
	}
	fmt.Fprintf(out, "UPDATED: %s\n", snap.LastUpdated.Format("15:04:05"))
}

func (a *CLIAdapter) ListOrdersComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	filter, _ := cmd.Flags().GetString("filter")
	search, _ := cmd.Flags().GetString("search")
	page, _ := cmd.Flags().GetInt("page")

	loadErr := ws.orders.Load(cmd.Context())
	ws.orders.SetFilter(domain.ParseFilter(filter))
	ws.orders.SetQuery(search)
	if !ws.orders.GoTo(page) {
		ws.orders.GoTo(1)
	}

	view := ws.orders.View()
	if !view.Loaded {
		return mapError(loadErr, app.MsgLoadOrders)
	}
	a.printView(cmd.OutOrStdout(), view)
	if loadErr != nil {
		return mapError(loadErr, app.MsgLoadOrders)
	}
	return nil
}

func (a *CLIAdapter) printView(out io.Writer, view app.OrdersView) {
	if view.Error != "" {
		fmt.Fprintf(out, "ERROR: %s (retry to reload)\n", view.Error)
	}
	parts := make([]string, 0, len(domain.Filters))
	for _, f := range domain.Filters {
		parts = append(parts, fmt.Sprintf("%s=%d", f.Label(), view.Counts[f]))
	}
	fmt.Fprintf(out, "COUNTS: %s\n", strings.Join(parts, " "))

	if len(view.Page.Items) == 0 {
		fmt.Fprintln(out, "No bags match.")
	}
	for _, o := range view.Page.Items {
		fmt.Fprintf(out, "ORDER: %d BAG: %s STUDENT: %s CLOTHES: %d SUBMITTED: %s STATUS: %s\n",
			o.ID, o.BagNo, titled(o.StudentDisplayName()), o.NumberOfClothes,
			o.SubmissionDisplay(), o.Status.Label())
	}
	fmt.Fprintf(out, "PAGE: %d/%d TOTAL: %d\n", view.Page.Page, view.Page.TotalPages, view.Page.FilteredCount)
}

func parseOrderIDs(raw string) ([]int64, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, s := range parts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, ValidationFailedError(fmt.Sprintf("invalid OrderID '%s': must be a number", s))
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ValidationFailedError("missing --order-ids")
	}
	return ids, nil
}

func (a *CLIAdapter) AdvanceComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetString("order-ids")
	ids, err := parseOrderIDs(raw)
	if err != nil {
		return err
	}
	return a.advance(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), ws, ids)
}

func (a *CLIAdapter) advance(ctx context.Context, out, errOut io.Writer, ws *workspace, ids []int64) error {
	if !ws.orders.View().Loaded {
		if err := ws.orders.Load(ctx); err != nil {
			return mapError(err, app.MsgLoadOrders)
		}
	}

	var err error
	if len(ids) == 1 {
		err = ws.orders.Advance(ctx, ids[0])
	} else {
		err = ws.orders.AdvanceMany(ctx, ids)
	}

	failed := make(map[int64]bool)
	for _, e := range multierr.Errors(err) {
		var orderErr *app.OrderError
		if errors.As(e, &orderErr) {
			failed[orderErr.OrderID] = true
			fmt.Fprintf(errOut, "Order %d %s\n", orderErr.OrderID, mapError(orderErr.Err, app.MsgUpdateStatus))
			continue
		}
		fmt.Fprintf(errOut, "%s\n", mapError(e, app.MsgUpdateStatus))
		if len(ids) == 1 {
			failed[ids[0]] = true
		}
	}

	for _, id := range ids {
		if !failed[id] {
			fmt.Fprintf(out, "ADVANCED: %d\n", id)
		}
	}
	if err != nil {
		return fmt.Errorf("one or more orders failed to advance")
	}
	return nil
}

func (a *CLIAdapter) SetStatusComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	orderID, _ := cmd.Flags().GetInt64("order-id")
	rawStatus, _ := cmd.Flags().GetString("status")

	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return ValidationFailedError(fmt.Sprintf("unknown status '%s'", rawStatus))
	}
	if err := ws.orders.Load(cmd.Context()); err != nil {
		return mapError(err, app.MsgLoadOrders)
	}
	if err := ws.orders.SetStatus(cmd.Context(), orderID, status); err != nil {
		return mapError(err, app.MsgUpdateStatus)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "STATUS_SET: %d %s\n", orderID, status.Label())
	return nil
}

func (a *CLIAdapter) StudentsComm(cmd *cobra.Command, args []string) error {
	ws, _, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	search, _ := cmd.Flags().GetString("search")

	students, err := ws.students.Lookup(cmd.Context(), search)
	if err != nil {
		return mapError(err, app.MsgLoadStudents)
	}
	out := cmd.OutOrStdout()
	if len(students) == 0 {
		fmt.Fprintln(out, "No students found.")
		return nil
	}
	for _, s := range students {
		fmt.Fprintf(out, "STUDENT: %s ROLL: %s ROOM: %s PHONE: %s\n",
			titled(s.Name), s.RollNo, s.RoomNo, s.Phone)
	}
	fmt.Fprintf(out, "TOTAL: %d\n", len(students))
	return nil
}

func (a *CLIAdapter) SettingsComm(cmd *cobra.Command, args []string) error {
	_, sess, err := a.current(cmd.Context())
	if err != nil {
		return err
	}
	change, _ := cmd.Flags().GetBool("change-password")
	out := cmd.OutOrStdout()

	if !change {
		p := sess.Profile
		fmt.Fprintf(out, "USERNAME: %s\nNAME: %s\nEMAIL: %s\nROLE: %s\n",
			p.Username, titled(p.Name), p.Email, titled(p.Role))
		return nil
	}

	current, _ := cmd.Flags().GetString("current")
	next, _ := cmd.Flags().GetString("new")
	if err := a.backend.ChangePassword(cmd.Context(), sess.Token, current, next); err != nil {
		return mapError(err, app.MsgUpdatePassword)
	}
	fmt.Fprintln(out, "PASSWORD_UPDATED")
	return nil
}

// titled builds a caser per call; a Caser must not be shared between goroutines.
func titled(s string) string {
	return cases.Title(language.English).String(s)
}
