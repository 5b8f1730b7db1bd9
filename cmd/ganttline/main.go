package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"ganttline/internal/app"
	"ganttline/internal/config"
	"ganttline/internal/layout"
	"ganttline/internal/replay"
	"ganttline/internal/repo"
	"ganttline/internal/seed"
	"ganttline/internal/server"
	"ganttline/internal/timeindex"
	"ganttline/internal/window"
)

var rootCmd = &cobra.Command{
	Use:   "ganttline",
	Short: "Ganttline CLI",
	Long: `Ganttline is a Gantt timeline engine: workflows hold tasks laid out on a
time grid, dependencies push successors later, and pointer gestures move, resize
and connect task bars.
- Workspace: directory holding ganttline.yml (optional; defaults apply without it).
- Seed: a YAML or JSON schedule loaded at start (chart.seed or --seed).
- Granularity: hours, days, weeks or months per grid column.
- Journal: every committed change is recorded for the session; see 'ganttline replay --events'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(viper.GetString("log-level"))
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("GANTTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (overrides <workspace>/ganttline.yml)")
	rootCmd.PersistentFlags().String("seed", "", "schedule file to load (overrides chart.seed)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	for _, name := range []string{"workspace", "config", "seed", "json", "log-level"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(layoutCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
}

func setupLogger(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

func withSession(ctx context.Context, fn func(*app.Session) error) error {
	s, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
		SeedPath:   viper.GetString("seed"),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage chart config",
		Long:  "Config sets the default granularity, timezone, grid geometry, interaction thresholds, server address and webhooks. It lives in <workspace>/ganttline.yml.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			b, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(b))
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("config"))
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	return cmd
}

func layoutCmd() *cobra.Command {
	var scrollLeft, scrollTop, width, height float64
	var granularity string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the visible frame for a scroll position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(s *app.Session) error {
				if granularity != "" {
					g, err := timeindex.Parse(granularity)
					if err != nil {
						return err
					}
					if err := s.Chart.SetGranularity(g); err != nil {
						return err
					}
				}
				if width > 0 || height > 0 {
					_, _, w, h := s.Chart.Viewport()
					if width > 0 {
						w = width
					}
					if height > 0 {
						h = height
					}
					s.Chart.Resize(w, h)
				}
				s.Chart.Scroll(window.Timeline, scrollLeft, scrollTop)
				return printFrame(s.Chart.Frame())
			})
		},
	}
	cmd.Flags().Float64Var(&scrollLeft, "scroll-left", 0, "horizontal scroll offset in pixels")
	cmd.Flags().Float64Var(&scrollTop, "scroll-top", 0, "vertical scroll offset in pixels")
	cmd.Flags().Float64Var(&width, "width", 0, "viewport width (default from config)")
	cmd.Flags().Float64Var(&height, "height", 0, "viewport height (default from config)")
	cmd.Flags().StringVar(&granularity, "granularity", "", "hours, days, weeks or months")
	return cmd
}

func printFrame(f layout.Frame) error {
	if viper.GetBool("json") {
		return printJSON(f)
	}
	fmt.Printf("granularity=%s rows=%d..%d of %d cols=%d..%d of %d now_x=%.0f\n",
		f.Granularity, f.Window.StartRow, f.Window.EndRow, f.TotalRows,
		f.Window.StartCol, f.Window.EndCol, f.TotalCols, f.NowX)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Row", "Type", "ID", "Title", "X", "Width", "Cols", "Clipped", "Valid"})
	for _, it := range f.Items() {
		if it.Type == layout.TypeBlank {
			tw.AppendRow(table.Row{it.Row, it.Type, "", "", "", "", "", "", ""})
			continue
		}
		clipped := ""
		switch {
		case it.LeftHidden && it.RightHidden:
			clipped = "both"
		case it.LeftHidden:
			clipped = "left"
		case it.RightHidden:
			clipped = "right"
		}
		valid := ""
		if it.Type == layout.TypeTask {
			valid = fmt.Sprint(it.IsValid)
		}
		tw.AppendRow(table.Row{
			it.Row, it.Type, it.ID, it.Title,
			fmt.Sprintf("%.0f", it.Rect.X), fmt.Sprintf("%.0f", it.Rect.Width),
			fmt.Sprintf("%d-%d", it.StartIndex, it.EndIndex), clipped, valid,
		})
	}
	tw.Render()
	if len(f.Edges) > 0 {
		et := table.NewWriter()
		et.SetOutputMirror(os.Stdout)
		et.AppendHeader(table.Row{"From", "To", "Direction", "Points"})
		for _, e := range f.Edges {
			et.AppendRow(table.Row{e.Dependency.FromID, e.Dependency.ToID, e.Dependency.Direction, len(e.Path)})
		}
		et.Render()
	}
	return nil
}

func tasksCmd() *cobra.Command {
	var workflowID string
	var invalidOnly bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks with their earliest allowed start dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(s *app.Session) error {
				return printTasks(s, workflowID, invalidOnly)
			})
		},
	}
	cmd.Flags().StringVar(&workflowID, "workflow", "", "only tasks of this workflow")
	cmd.Flags().BoolVar(&invalidOnly, "invalid", false, "only tasks that fail validation")
	return cmd
}

func printTasks(s *app.Session, workflowID string, invalidOnly bool) error {
	st := s.Engine.State()
	type row struct {
		ID       string    `json:"id"`
		Workflow string    `json:"workflow_id"`
		Title    string    `json:"title"`
		Start    time.Time `json:"start_date"`
		Duration string    `json:"duration"`
		Earliest time.Time `json:"earliest_allowed_start_date"`
		Valid    bool      `json:"is_valid"`
	}
	var rows []row
	for _, w := range st.SortedWorkflows() {
		if workflowID != "" && w.ID != workflowID {
			continue
		}
		for _, t := range st.WorkflowTasks(w.ID) {
			if invalidOnly && t.IsValid {
				continue
			}
			rows = append(rows, row{t.ID, t.WorkflowID, t.Title, t.StartDate, t.Duration, t.EarliestAllowedStartDate, t.IsValid})
		}
	}
	if viper.GetBool("json") {
		return printJSON(rows)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Workflow", "Title", "Start", "Duration", "Earliest", "Valid"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.ID, r.Workflow, r.Title, formatDate(r.Start), r.Duration, formatDate(r.Earliest), r.Valid})
	}
	tw.Render()
	return nil
}

func replayCmd() *cobra.Command {
	var script string
	var showEvents bool
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a gesture script to the schedule and print the result",
		Long: `A script is YAML with a list of steps; each step is one of
  pointer: {type: down|move|up|leave|hover|click|outside_click, x: <px>, y: <px>}
  scroll: {surface: timeline|details, left: <px>, top: <px>}
  resize: {width: <px>, height: <px>}
  granularity: hours|days|weeks|months
  menu: forward|backward|both|remove|close
  tick: <RFC3339 time>`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if script == "" {
				return fmt.Errorf("--script required")
			}
			sc, err := replay.Load(script)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(s *app.Session) error {
				if err := replay.Run(s.Chart, sc); err != nil {
					return err
				}
				if showEvents {
					return printEvents(cmd.Context(), s)
				}
				return printTasks(s, "", false)
			})
		},
	}
	cmd.Flags().StringVar(&script, "script", "", "gesture script file")
	cmd.Flags().BoolVar(&showEvents, "events", false, "print the session journal instead of the task table")
	return cmd
}

func printEvents(ctx context.Context, s *app.Session) error {
	events, err := s.Repo.ListEvents(ctx, repo.EventFilter{Limit: 1000})
	if err != nil {
		return err
	}
	if viper.GetBool("json") {
		return printJSON(events)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "TS", "Type", "Kind", "Entity"})
	for _, e := range events {
		tw.AppendRow(table.Row{e.ID, e.TS.Format(time.RFC3339), e.Type, e.EntityKind, e.EntityID})
	}
	tw.Render()
	return nil
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the loaded schedule as a seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(s *app.Session) error {
				st := s.Engine.State()
				f := seed.FromState(st.Workflows, st.Tasks)
				if viper.GetBool("json") {
					return printJSON(f)
				}
				b, err := f.Marshal()
				if err != nil {
					return err
				}
				fmt.Print(string(b))
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, jwtSecret string
	var tick time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, func(s *app.Session) error {
				if addr == "" {
					addr = s.Config.Server.Addr
				}
				if basePath == "" {
					basePath = s.Config.Server.BasePath
				}
				if jwtSecret == "" {
					jwtSecret = os.Getenv("GANTTLINE_JWT_SECRET")
				}
				handler, err := server.New(server.Config{
					Session:  s,
					BasePath: basePath,
					Auth:     server.AuthConfig{JWTSecret: jwtSecret, Logger: s.Logger},
				})
				if err != nil {
					return err
				}
				server.StartClock(ctx, s.Bus, tick, nil)
				hooks := &server.WebhookDispatcher{Repo: s.Repo, SessionID: s.ID, Hooks: s.Config.Webhooks, Logger: s.Logger}
				hooks.Start(ctx)

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				fmt.Printf("Serving Ganttline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at %s/docs)\n", addr, basePath, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default server.base_path)")
	cmd.Flags().StringVar(&jwtSecret, "jwt-secret", "", "HS256 secret for bearer auth (or GANTTLINE_JWT_SECRET); empty serves without auth")
	cmd.Flags().DurationVar(&tick, "tick", server.DefaultTickInterval, "how often the current-time marker advances")
	return cmd
}

func tokenCmd() *cobra.Command {
	var subject, secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("GANTTLINE_JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("--secret or GANTTLINE_JWT_SECRET required")
			}
			if subject == "" {
				return fmt.Errorf("--subject required")
			}
			token, err := server.IssueToken(secret, subject, ttl, time.Now())
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"token": token, "subject": subject, "expires_in": ttl.String()})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "actor the token identifies")
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 secret (or GANTTLINE_JWT_SECRET)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

// --- helpers ---

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
