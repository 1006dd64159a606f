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

	"growthdesk/internal/config"
	"growthdesk/internal/db"
	"growthdesk/internal/domain"
	"growthdesk/internal/engine"
	"growthdesk/internal/migrate"
	"growthdesk/internal/repo"
	"growthdesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "gd",
	Short: "GrowthDesk CLI",
	Long: `GrowthDesk runs client review workflows for agency work.
- Workspace: your .growthdesk directory with the database; growthdesk.yml holds agency settings.
- Events: campaigns or engagements; client companies are attached to them.
- Strategies: agency plans with reviewable items; clients approve, reject or mark items modified.
- Deliverables: individual assets (email templates, landing pages, ...) with their own review loop.
- Notifications: each side is told when the other acts; read with 'gd notifications list'.
- Activity: append-only log of everything that happened, view with 'gd activity list'.`,
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
	viper.SetEnvPrefix("GROWTHDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "acting user identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(eventCmd())
	rootCmd.AddCommand(strategyCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(deliverableCmd())
	rootCmd.AddCommand(commentCmd())
	rootCmd.AddCommand(questionCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(pendingCmd())
	rootCmd.AddCommand(serveCmd())
}

func actorID() string {
	return viper.GetString("actor-id")
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
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

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(path, config.DefaultTemplate(), 0o644); err != nil {
					return err
				}
			}
			fmt.Println("workspace initialized:", workspace)
			return nil
		},
	}
}

func companyCmd() *cobra.Command {
	c := &cobra.Command{Use: "company", Short: "Manage client companies"}

	var name, website string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				co := domain.Company{ID: uuid.NewString(), Name: name, Website: website, CreatedAt: stamp()}
				if err := r.InsertCompany(ctx, co); err != nil {
					return err
				}
				return printJSONOrTable(co)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "company name")
	create.Flags().StringVar(&website, "website", "", "website")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCompanies(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Website"})
				for _, co := range items {
					tw.AppendRow(table.Row{co.ID, co.Name, co.Website})
				}
				tw.Render()
				return nil
			})
		},
	}

	c.AddCommand(create, list)
	return c
}

func userCmd() *cobra.Command {
	c := &cobra.Command{Use: "user", Short: "Manage users"}

	var email, name, role, companyID string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role == domain.RoleClient && companyID == "" {
				return fmt.Errorf("--company required for client users")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u := domain.User{ID: uuid.NewString(), Email: email, Name: name, Role: role, CreatedAt: stamp()}
				if companyID != "" {
					u.CompanyID = &companyID
				}
				if err := r.InsertUser(ctx, u); err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "email")
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&role, "role", domain.RoleAgencyMember, "role (agency_admin, agency_member, client)")
	create.Flags().StringVar(&companyID, "company", "", "company id (client users)")
	_ = create.MarkFlagRequired("email")

	var filters repo.UserFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Company"})
				for _, u := range items {
					company := ""
					if u.CompanyID != nil {
						company = *u.CompanyID
					}
					tw.AppendRow(table.Row{u.ID, u.Email, u.Name, u.Role, company})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&filters.Role, "role", "", "role filter")
	list.Flags().StringVar(&filters.CompanyID, "company", "", "company filter")

	c.AddCommand(create, list)
	return c
}

func eventCmd() *cobra.Command {
	c := &cobra.Command{Use: "event", Short: "Manage events"}

	var name, desc, startsAt, endsAt string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				ev := domain.Event{
					ID: uuid.NewString(), Name: name, Description: desc,
					StartsAt: startsAt, EndsAt: endsAt, CreatedAt: stamp(),
				}
				if err := r.InsertEvent(ctx, ev); err != nil {
					return err
				}
				return printJSONOrTable(ev)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "event name")
	create.Flags().StringVar(&desc, "description", "", "description")
	create.Flags().StringVar(&startsAt, "starts-at", "", "start (RFC3339)")
	create.Flags().StringVar(&endsAt, "ends-at", "", "end (RFC3339)")
	_ = create.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListEvents(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Starts", "Ends"})
				for _, ev := range items {
					tw.AppendRow(table.Row{ev.ID, ev.Name, ev.StartsAt, ev.EndsAt})
				}
				tw.Render()
				return nil
			})
		},
	}

	var eventID, companyID string
	link := &cobra.Command{
		Use:   "link",
		Short: "Attach a company to an event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetEvent(ctx, eventID); err != nil {
					return err
				}
				if _, err := r.GetCompany(ctx, companyID); err != nil {
					return err
				}
				ec := domain.EventCompany{ID: uuid.NewString(), EventID: eventID, CompanyID: companyID, CreatedAt: stamp()}
				if err := r.InsertEventCompany(ctx, ec); err != nil {
					return err
				}
				return printJSONOrTable(ec)
			})
		},
	}
	link.Flags().StringVar(&eventID, "event", "", "event id")
	link.Flags().StringVar(&companyID, "company", "", "company id")
	_ = link.MarkFlagRequired("event")
	_ = link.MarkFlagRequired("company")

	c.AddCommand(create, list, link)
	return c
}

func strategyCmd() *cobra.Command {
	c := &cobra.Command{Use: "strategy", Short: "Manage strategies"}

	var eventCompanyID, title, desc, content string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateStrategy(ctx, engine.StrategyCreateOptions{
					EventCompanyID: eventCompanyID,
					Title:          title,
					Description:    desc,
					ContentJSON:    content,
					ActorID:        actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	create.Flags().StringVar(&eventCompanyID, "event-company", "", "event company id")
	create.Flags().StringVar(&title, "title", "", "title")
	create.Flags().StringVar(&desc, "description", "", "description")
	create.Flags().StringVar(&content, "content", "", "content JSON")
	_ = create.MarkFlagRequired("event-company")
	_ = create.MarkFlagRequired("title")

	var listEventCompany string
	list := &cobra.Command{
		Use:   "list",
		Short: "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListStrategies(ctx, listEventCompany)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Version"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Title, s.Status, s.Version})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listEventCompany, "event-company", "", "event company filter")

	show := &cobra.Command{
		Use:   "show <strategy-id>",
		Short: "Show a strategy with its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				s, err := r.GetStrategy(ctx, args[0])
				if err != nil {
					return err
				}
				items, err := r.ListStrategyItems(ctx, s.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"strategy": s, "items": items})
			})
		},
	}

	submit := &cobra.Command{
		Use:   "submit <strategy-id>",
		Short: "Submit strategy for client review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.SubmitStrategy(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}

	resubmit := &cobra.Command{
		Use:   "resubmit <strategy-id>",
		Short: "Resubmit strategy after changes were requested",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.ResubmitStrategy(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}

	progress := &cobra.Command{
		Use:   "progress <strategy-id>",
		Short: "Show item review progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.StrategyProgress(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}

	c.AddCommand(create, list, show, submit, resubmit, progress)
	return c
}

func itemCmd() *cobra.Command {
	c := &cobra.Command{Use: "item", Short: "Manage strategy items"}

	var strategyID, title, desc, content string
	var sortOrder int
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an item to a strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				it, err := e.AddStrategyItem(ctx, engine.ItemCreateOptions{
					StrategyID:  strategyID,
					Title:       title,
					Description: desc,
					ContentJSON: content,
					SortOrder:   sortOrder,
					ActorID:     actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	add.Flags().StringVar(&strategyID, "strategy", "", "strategy id")
	add.Flags().StringVar(&title, "title", "", "title")
	add.Flags().StringVar(&desc, "description", "", "description")
	add.Flags().StringVar(&content, "content", "", "content JSON")
	add.Flags().IntVar(&sortOrder, "sort-order", 0, "position (0 = append)")
	_ = add.MarkFlagRequired("strategy")
	_ = add.MarkFlagRequired("title")

	decide := func(use, status, short string) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <item-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					decision, err := e.UpdateItemStatus(ctx, args[0], status, actorID())
					if err != nil {
						return err
					}
					return printJSONOrTable(decision)
				})
			},
		}
	}

	c.AddCommand(add,
		decide("approve", domain.ItemApproved, "Approve an item"),
		decide("reject", domain.ItemRejected, "Reject an item"),
		decide("modify", domain.ItemModified, "Mark an item modified"),
	)
	return c
}

func deliverableCmd() *cobra.Command {
	c := &cobra.Command{Use: "deliverable", Short: "Manage deliverables"}

	var eventCompanyID, title, desc, kind, content, fileRef string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create deliverable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDeliverable(ctx, engine.DeliverableCreateOptions{
					EventCompanyID: eventCompanyID,
					Title:          title,
					Description:    desc,
					Type:           kind,
					ContentJSON:    content,
					FileRef:        fileRef,
					ActorID:        actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	create.Flags().StringVar(&eventCompanyID, "event-company", "", "event company id")
	create.Flags().StringVar(&title, "title", "", "title")
	create.Flags().StringVar(&desc, "description", "", "description")
	create.Flags().StringVar(&kind, "type", "document", "deliverable type")
	create.Flags().StringVar(&content, "content", "", "content JSON")
	create.Flags().StringVar(&fileRef, "file-ref", "", "file reference")
	_ = create.MarkFlagRequired("event-company")
	_ = create.MarkFlagRequired("title")

	var filters repo.DeliverableFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List deliverables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListDeliverables(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Version"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Title, d.Type, d.Status, d.Version})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&filters.EventCompanyID, "event-company", "", "event company filter")
	list.Flags().StringVar(&filters.Status, "status", "", "status filter")
	list.Flags().StringVar(&filters.Type, "type", "", "type filter")

	action := func(use, short string, fn func(engine.Engine) func(context.Context, string, string) (domain.Deliverable, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <deliverable-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
					d, err := fn(e)(ctx, args[0], actorID())
					if err != nil {
						return err
					}
					return printJSONOrTable(d)
				})
			},
		}
	}

	c.AddCommand(create, list,
		action("submit", "Submit deliverable for client review", func(e engine.Engine) func(context.Context, string, string) (domain.Deliverable, error) {
			return e.SubmitDeliverable
		}),
		action("approve", "Approve deliverable", func(e engine.Engine) func(context.Context, string, string) (domain.Deliverable, error) {
			return e.ApproveDeliverable
		}),
		action("request-changes", "Request changes on deliverable", func(e engine.Engine) func(context.Context, string, string) (domain.Deliverable, error) {
			return e.RequestDeliverableChanges
		}),
		action("resubmit", "Resubmit deliverable after changes", func(e engine.Engine) func(context.Context, string, string) (domain.Deliverable, error) {
			return e.ResubmitDeliverable
		}),
		action("deliver", "Mark deliverable delivered", func(e engine.Engine) func(context.Context, string, string) (domain.Deliverable, error) {
			return e.MarkDelivered
		}),
	)
	return c
}

func commentCmd() *cobra.Command {
	c := &cobra.Command{Use: "comment", Short: "Comments"}

	var strategyID, deliverableID, body string
	add := &cobra.Command{
		Use:   "add",
		Short: "Comment on a strategy or deliverable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cm, err := e.AddComment(ctx, engine.CommentCreateOptions{
					StrategyID:    strategyID,
					DeliverableID: deliverableID,
					Body:          body,
					AuthorID:      actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(cm)
			})
		},
	}
	add.Flags().StringVar(&strategyID, "strategy", "", "strategy id")
	add.Flags().StringVar(&deliverableID, "deliverable", "", "deliverable id")
	add.Flags().StringVar(&body, "body", "", "comment body")
	_ = add.MarkFlagRequired("body")

	var listStrategy, listDeliverable string
	list := &cobra.Command{
		Use:   "list",
		Short: "List comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListComments(ctx, listStrategy, listDeliverable)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listStrategy, "strategy", "", "strategy id")
	list.Flags().StringVar(&listDeliverable, "deliverable", "", "deliverable id")

	c.AddCommand(add, list)
	return c
}

func questionCmd() *cobra.Command {
	c := &cobra.Command{Use: "question", Short: "Questions"}

	var eventCompanyID, body string
	ask := &cobra.Command{
		Use:   "ask",
		Short: "Ask a question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.AddQuestion(ctx, engine.QuestionCreateOptions{
					EventCompanyID: eventCompanyID,
					Body:           body,
					AuthorID:       actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	ask.Flags().StringVar(&eventCompanyID, "event-company", "", "event company id")
	ask.Flags().StringVar(&body, "body", "", "question body")
	_ = ask.MarkFlagRequired("event-company")
	_ = ask.MarkFlagRequired("body")

	var answerBody string
	answer := &cobra.Command{
		Use:   "answer <question-id>",
		Short: "Answer a question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				q, err := e.AnswerQuestion(ctx, args[0], answerBody, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(q)
			})
		},
	}
	answer.Flags().StringVar(&answerBody, "body", "", "answer body")
	_ = answer.MarkFlagRequired("body")

	var listEventCompany string
	list := &cobra.Command{
		Use:   "list",
		Short: "List questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListQuestions(ctx, listEventCompany)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	list.Flags().StringVar(&listEventCompany, "event-company", "", "event company filter")

	c.AddCommand(ask, answer, list)
	return c
}

func notificationsCmd() *cobra.Command {
	c := &cobra.Command{Use: "notifications", Short: "Notifications"}

	var unreadOnly bool
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List the acting user's notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListNotifications(ctx, repo.NotificationFilters{
					UserID:     actorID(),
					UnreadOnly: unreadOnly,
					Limit:      limit,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Message", "Read"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.Title, n.Message, n.Read})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().BoolVar(&unreadOnly, "unread", false, "unread only")
	list.Flags().IntVar(&limit, "limit", 0, "max rows")

	read := &cobra.Command{
		Use:   "read <notification-id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var id int64
				if _, err := fmt.Sscan(args[0], &id); err != nil {
					return fmt.Errorf("invalid notification id %q", args[0])
				}
				return r.MarkNotificationRead(ctx, id, actorID())
			})
		},
	}

	c.AddCommand(list, read)
	return c
}

func activityCmd() *cobra.Command {
	c := &cobra.Command{Use: "activity", Short: "Activity feed"}

	var filters repo.ActivityFilters
	list := &cobra.Command{
		Use:   "list",
		Short: "List activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListActivities(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Message", "Actor", "At"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Type, a.Message, a.ActorID, a.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&filters.Type, "type", "", "type filter")
	list.Flags().StringVar(&filters.StrategyID, "strategy", "", "strategy filter")
	list.Flags().StringVar(&filters.DeliverableID, "deliverable", "", "deliverable filter")
	list.Flags().IntVar(&filters.Limit, "limit", 0, "max rows")

	c.AddCommand(list)
	return c
}

func pendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending <company-id>",
		Short: "Strategies and deliverables awaiting a company's review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				pending, err := e.ListPendingForCompany(ctx, args[0], actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(pending)
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("GROWTHDESK_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("GROWTHDESK_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving GrowthDesk API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}
