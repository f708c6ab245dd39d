package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"satnam/internal/cli"
	jwttoken "satnam/internal/jwt_token"
	"satnam/internal/nfc"
	"satnam/internal/onboarding/models"
	"satnam/internal/onboarding/secrets"
	"satnam/internal/platform/httpserver"
	"satnam/internal/platform/logger"
	id "satnam/pkg/domain"
	"satnam/pkg/requestcontext"
)

type interactiveFunc func(ctx context.Context, a *app, con *cli.Console) error

// runInteractive wires the app and runs fn next to the ops API and the
// audit worker. Everything stops when fn returns.
func runInteractive(cmd *cobra.Command, withOps bool, fn interactiveFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lines := nfc.NewReaderSource(cmd.InOrStdin())
	con := cli.NewConsole(lines, cmd.OutOrStdout(), int(os.Stdin.Fd()))

	a, err := newApp(ctx, cfg, log, lines)
	if err != nil {
		return err
	}
	defer a.close()

	ctx = requestcontext.WithCoordinatorID(ctx, a.coordinator)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return fn(gctx, a, con)
	})
	if withOps && cfg.Ops.Addr != "" {
		srv := a.opsServer()
		g.Go(func() error { return httpserver.Run(gctx, srv, log) })
	}
	for _, run := range a.background {
		g.Go(func() error {
			if err := run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		con.Warn("Interrupted. Progress up to the last completed step is saved; see: onboard sessions")
		return nil
	}
	return err
}

func newStartCmd() *cobra.Command {
	var (
		mode     string
		metadata map[string]string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new onboarding session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := models.Mode(mode)
			if !m.IsValid() {
				return fmt.Errorf("--mode must be %q or %q", models.ModeSingle, models.ModeBatch)
			}
			return runInteractive(cmd, true, func(ctx context.Context, a *app, con *cli.Console) error {
				con.Banner("satnam")
				_, err := a.wizard(con, metadata).Start(ctx, m)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(models.ModeSingle), "session mode: single or batch")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "session metadata as key=value pairs")
	return cmd
}

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [session-id]",
		Short: "Resume a paused or interrupted session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, true, func(ctx context.Context, a *app, con *cli.Console) error {
				sid, err := pickSession(ctx, a, con, args)
				if err != nil {
					return err
				}
				con.Banner("satnam")
				return a.wizard(con, nil).Resume(ctx, sid)
			})
		},
	}
}

// pickSession parses the argument or lets the coordinator choose.
func pickSession(ctx context.Context, a *app, con *cli.Console, args []string) (id.SessionID, error) {
	if len(args) == 1 {
		return id.ParseSessionID(args[0])
	}
	sessions, err := a.service.ListResumable(ctx, a.coordinator)
	if err != nil {
		return id.SessionID{}, err
	}
	if len(sessions) == 0 {
		return id.SessionID{}, fmt.Errorf("no sessions to resume")
	}
	options := make([]string, len(sessions))
	for i, sess := range sessions {
		options[i] = fmt.Sprintf("%s  %s, %d participant(s), updated %s",
			sess.ID, sess.Status, len(sess.Participants), sess.UpdatedAt.Local().Format(time.DateTime))
	}
	idx, err := con.Choose(ctx, "Which session?", options)
	if err != nil {
		return id.SessionID{}, err
	}
	return sessions[idx].ID, nil
}

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions that can be resumed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, false, func(ctx context.Context, a *app, con *cli.Console) error {
				sessions, err := a.service.ListResumable(ctx, a.coordinator)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					con.Info("No sessions to resume.")
					return nil
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SESSION\tMODE\tSTATUS\tPARTICIPANTS\tUPDATED")
				for _, sess := range sessions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
						sess.ID, sess.Mode, sess.Status, len(sess.Participants),
						sess.UpdatedAt.Local().Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}
}

func newTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template [participant-name]",
		Short: "Print a blank backup sheet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), secrets.Template(name))
			return err
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		session string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the ops API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			coordinator, err := coordinatorFromConfig(cfg)
			if err != nil {
				return err
			}
			var sid id.SessionID
			if session != "" {
				if sid, err = id.ParseSessionID(session); err != nil {
					return fmt.Errorf("--session: %w", err)
				}
			}
			tokens := jwttoken.NewJWTService(cfg.Backend.JWTSigningKey, cfg.Backend.JWTIssuer, cfg.Backend.JWTAudience, ttl)
			token, err := tokens.GenerateToken(coordinator, sid, time.Now())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "scope the token to one session")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
