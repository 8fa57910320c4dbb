package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskhub/internal/app"
	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/domain"
	"taskhub/internal/migrate"
	"taskhub/internal/repo"
	"taskhub/internal/token"
)

var rootCmd = &cobra.Command{
	Use:   "th",
	Short: "Taskhub CLI",
	Long: `Taskhub is a multi-tenant project and task tracker.
- Workspace: the .taskhub directory holding the SQLite database.
- Projects own teams and tasks; the project owner manages both.
- Teams group users under a role (ADMIN, MANAGER, MEMBER) that drives the
  permission matrix; membership is granted through email invitations.
- Activity: every mutation lands in a feed, view with 'th activity tail'
  or ship it to webhooks configured in taskhub.yml.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKHUB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("config", "", "path to taskhub.yml")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(tokenCmd())
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := app.LoadConfig(workspace, viper.GetString("config"))
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := app.New(workspace, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			handler, err := a.Handler()
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			host := cfg.Server.Addr
			if strings.HasPrefix(host, ":") {
				host = "localhost" + host
			}
			fmt.Printf("Serving Taskhub API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n",
				host, cfg.Server.BasePath, cfg.Server.BasePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("database up to date")
			return nil
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Inspect users"}
	user.AddCommand(userListCmd())
	return user
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				users, err := r.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Username", "Verified", "Active"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Email, u.Username, u.IsVerified, u.IsActive})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Inspect projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListProjects(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Owner"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, p.OwnerID})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	return cmd
}

func teamCmd() *cobra.Command {
	team := &cobra.Command{Use: "team", Short: "Inspect teams"}
	team.AddCommand(teamListCmd())
	team.AddCommand(teamMembersCmd())
	return team
}

func teamListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var teams []domain.Team
				var err error
				if projectID != "" {
					teams, err = r.ListTeamsByProject(ctx, projectID)
				} else {
					teams, err = r.ListTeams(ctx)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(teams)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Project", "Owner"})
				for _, t := range teams {
					tw.AppendRow(table.Row{t.ID, t.Name, t.ProjectID, t.OwnerID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "filter by project id")
	return cmd
}

func teamMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members <team_id>",
		Short: "List team members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				members, err := r.ListTeamMembers(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(members)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"User", "Role", "Joined"})
				for _, m := range members {
					tw.AppendRow(table.Row{m.UserID, m.Role, m.JoinedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Inspect tasks"}
	task.AddCommand(taskListCmd())
	return task
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tasks, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Assignee"})
				for _, t := range tasks {
					assignee := ""
					if t.AssigneeID != nil {
						assignee = *t.AssigneeID
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.TeamID, "team", "", "team filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	return cmd
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Short: "Activity feed"}
	act.AddCommand(activityTailCmd())
	return act
}

func activityTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail the activity feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				entries, err := r.LatestActivity(ctx, n, evtType, entityKind)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Actor", "Entity"})
				for _, a := range entries {
					tw.AppendRow(table.Row{a.TS, a.Type, a.ActorID, a.EntityKind + "/" + a.EntityID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&evtType, "type", "", "type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Inspect configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.LoadConfig(viper.GetString("workspace"), viper.GetString("config"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate config",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.LoadConfig(viper.GetString("workspace"), viper.GetString("config"))
			if viper.GetBool("json") {
				msg := ""
				if err != nil {
					msg = err.Error()
				}
				return printJSON(map[string]any{"ok": err == nil, "error": msg})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	})
	return cfg
}

func tokenCmd() *cobra.Command {
	tok := &cobra.Command{Use: "token", Short: "Mint and inspect tokens"}
	tok.AddCommand(tokenInviteCmd())
	tok.AddCommand(tokenInspectCmd())
	return tok
}

// tokenInviteCmd mints an invite token and stores the matching invite row,
// useful for seeding a first team over email by hand.
func tokenInviteCmd() *cobra.Command {
	var email, teamID, role string
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Mint a team invite token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || teamID == "" {
				return fmt.Errorf("--email and --team are required")
			}
			svc, cfg, err := tokenServiceWithConfig()
			if err != nil {
				return err
			}
			raw, err := svc.GenerateInvite(email, teamID, role)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				team, err := r.GetTeam(ctx, teamID)
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				inv := domain.TeamInvite{
					ID:        uuid.NewString(),
					TeamID:    teamID,
					Email:     email,
					Role:      role,
					Status:    "PENDING",
					Token:     raw,
					InvitedBy: team.OwnerID,
					ExpiresAt: now.Add(time.Duration(cfg.Auth.InviteTTLMinutes) * time.Minute).Format(time.RFC3339),
					CreatedAt: now.Format(time.RFC3339),
				}
				if err := r.InsertInvite(ctx, inv); err != nil {
					return err
				}
				fmt.Println(raw)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "invitee email")
	cmd.Flags().StringVar(&teamID, "team", "", "team id")
	cmd.Flags().StringVar(&role, "role", "MEMBER", "membership role")
	return cmd
}

func tokenInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Identify and decode a token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := tokenService()
			if err != nil {
				return err
			}
			raw := args[0]
			if id, err := svc.VerifyAccess(raw); err == nil {
				return printJSON(map[string]any{"kind": "access", "user_id": id.UserID, "email": id.Email})
			}
			if id, err := svc.VerifyRefresh(raw); err == nil {
				return printJSON(map[string]any{"kind": "refresh", "user_id": id.UserID, "email": id.Email})
			}
			if inv, err := svc.VerifyInvite(raw); err == nil {
				return printJSON(map[string]any{"kind": "invite", "email": inv.Email, "team_id": inv.TeamID, "role": inv.Role})
			}
			return fmt.Errorf("token is invalid or expired")
		},
	}
}

func tokenService() (*token.Service, error) {
	svc, _, err := tokenServiceWithConfig()
	return svc, err
}

func tokenServiceWithConfig() (*token.Service, *config.Config, error) {
	cfg, err := app.LoadConfig(viper.GetString("workspace"), viper.GetString("config"))
	if err != nil {
		return nil, nil, err
	}
	svc := token.NewService(token.Config{
		Secret:        cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL:    time.Duration(cfg.Auth.RefreshTTLMinutes) * time.Minute,
		InviteTTL:     time.Duration(cfg.Auth.InviteTTLMinutes) * time.Minute,
	})
	return svc, cfg, nil
}

// --- helpers ---

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
