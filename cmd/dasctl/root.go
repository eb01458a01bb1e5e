package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/kvstore"
)

// cli carries per-invocation state shared by the subcommands.
type cli struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out}

	root := &cobra.Command{
		Use:           "dasctl",
		Short:         "Inspect and edit data acquisition requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c.v.SetEnvPrefix("DAS")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	flags := root.PersistentFlags()
	flags.String("driver", kvstore.DriverRedis, "key-value driver: memory, redis, postgres or sqlite")
	flags.String("redis-addr", "localhost:6379", "redis address")
	flags.String("sqlite-path", "das.db", "sqlite database file")
	flags.Bool("validate-transitions", false, "reject state changes outside VALIDATED -> DOWNLOADED -> FINISHED")
	flags.Bool("json", false, "output JSON")
	flags.Bool("verbose", false, "log store operations to stderr")
	for _, name := range []string{"driver", "redis-addr", "sqlite-path", "validate-transitions", "json", "verbose"} {
		_ = c.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(c.getCmd(), c.createCmd(), c.setStateCmd(), c.listCmd())
	return root
}

// withService opens the store and runs fn against an acquisition service on top of it.
func (c *cli) withService(cmd *cobra.Command, fn func(context.Context, *acquisition.Store, *acquisition.Service) error) error {
	ctx := cmd.Context()
	logger := zerolog.Nop()
	if c.v.GetBool("verbose") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	}

	cfg := kvstore.ConfigFromEnv()
	cfg.Driver = c.v.GetString("driver")
	cfg.RedisAddr = c.v.GetString("redis-addr")
	cfg.SQLitePath = c.v.GetString("sqlite-path")
	cfg.CircuitBreaker = false

	backend, closeFn, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	store := acquisition.NewStore(backend, logger)
	service := acquisition.NewService(acquisition.ServiceConfig{
		Repository:          store,
		ValidateTransitions: c.v.GetBool("validate-transitions"),
		Logger:              logger,
	})
	return fn(ctx, store, service)
}

// operator is the caller recorded for CLI changes; the CLI does not check organizations.
var operator = acquisition.Caller{UserID: "dasctl"}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, _ *acquisition.Store, s *acquisition.Service) error {
				req, err := s.Get(ctx, operator, args[0])
				if err != nil {
					return err
				}
				return c.print(req)
			})
		},
	}
}

func (c *cli) createCmd() *cobra.Command {
	var in acquisition.NewRequestInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a request in state VALIDATED",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, _ *acquisition.Store, s *acquisition.Service) error {
				req, err := s.Create(ctx, operator, in)
				if err != nil {
					return err
				}
				return c.print(req)
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "request title")
	cmd.Flags().StringVar(&in.OrgUUID, "org", "", "owning organization UUID")
	cmd.Flags().StringVar(&in.Source, "source", "", "data source location")
	cmd.Flags().StringVar(&in.Category, "category", "", "data category")
	cmd.Flags().BoolVar(&in.PublicRequest, "public", false, "make the data set public")
	return cmd
}

func (c *cli) setStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-state <id> <state>",
		Short: "Overwrite the state of a request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := acquisition.ParseState(strings.ToUpper(args[1]))
			if err != nil {
				return err
			}
			return c.withService(cmd, func(ctx context.Context, _ *acquisition.Store, s *acquisition.Service) error {
				req, err := s.UpdateState(ctx, operator, args[0], state)
				if err != nil {
					return err
				}
				return c.print(req)
			})
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var org string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, store *acquisition.Store, _ *acquisition.Service) error {
				reqs, err := store.List(ctx, org)
				if err != nil {
					return err
				}
				return c.printList(reqs)
			})
		},
	}
	cmd.Flags().StringVar(&org, "org", "", "only requests of this organization")
	return cmd
}

func (c *cli) print(req *acquisition.Request) error {
	if c.v.GetBool("json") {
		return c.printJSON(req)
	}
	c.printTable([]*acquisition.Request{req})
	return nil
}

func (c *cli) printList(reqs []*acquisition.Request) error {
	if c.v.GetBool("json") {
		return c.printJSON(reqs)
	}
	c.printTable(reqs)
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) printTable(reqs []*acquisition.Request) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.out)
	tw.AppendHeader(table.Row{"ID", "Org", "Title", "Source", "Category", "Public", "State"})
	for _, r := range reqs {
		tw.AppendRow(table.Row{r.ID, r.OrgUUID, r.Title, r.Source, r.Category, r.PublicRequest, r.State})
	}
	tw.Render()
}

// openBackend is swapped in tests to share one in-memory store across invocations.
var openBackend = kvstore.Open
