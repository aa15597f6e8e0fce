package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"virtualboard/internal/account"
	"virtualboard/internal/app"
	"virtualboard/internal/cleanup"
	"virtualboard/internal/config"
	"virtualboard/internal/logging"
	"virtualboard/internal/queue"
	"virtualboard/internal/store"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	isTerminalFunc   = term.IsTerminal

	errEmptyPassword = errors.New("password must not be empty")
)

type commandLine struct {
	cfg       config.App
	log       zerolog.Logger
	openStore func(ctx context.Context) (*app.Repos, error)
	queues    func() (queue.Queue, cleanup.ParkingLot, func(), error)
}

func newCommandLine(cfg config.App, log zerolog.Logger) *commandLine {
	return &commandLine{
		cfg: cfg,
		log: log,
		openStore: func(ctx context.Context) (*app.Repos, error) {
			return app.OpenStore(ctx, cfg, logging.Component(log, "store"))
		},
		queues: func() (queue.Queue, cleanup.ParkingLot, func(), error) {
			r := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)
			q, parked, err := app.Queues(cfg, r)
			return q, parked, func() { _ = r.Close() }, err
		},
	}
}

func (cli *commandLine) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Virtual board maintenance commands",
		SilenceUsage:  true,
	}
	root.AddCommand(cli.migrateCmd(), cli.addTeacherCmd(), cli.addStudentCmd(), cli.requeueCmd())
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or indexes for STORE_BACKEND",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repos, err := cli.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer repos.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s store is up to date\n", cli.cfg.StoreBackend)
			return nil
		},
	}
}

func (cli *commandLine) addTeacherCmd() *cobra.Command {
	var in account.TeacherSignup
	cmd := &cobra.Command{
		Use:   "add-teacher",
		Short: "Register a teacher account. The password is prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			in.Password = pwd
			return cli.withAccounts(cmd.Context(), func(svc *account.Service) error {
				t, err := svc.RegisterTeacher(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "teacher %s created (%s)\n", t.Email, t.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringSliceVar(&in.Subjects, "subject", nil, "subject taught (repeatable)")
	cmd.Flags().StringSliceVar(&in.Classes, "class", nil, "class taught (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) addStudentCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "add-student",
		Short: "Register a student account. The password is prompted for.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.withAccounts(cmd.Context(), func(svc *account.Service) error {
				st, err := svc.RegisterStudent(cmd.Context(), account.StudentSignup{Email: email, Password: pwd})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "student %s created (%s)\n", st.Email, st.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (cli *commandLine) requeueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue",
		Short: "Move parked blob cleanup jobs back onto the cleanup queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, parked, done, err := cli.queues()
			if err != nil {
				return err
			}
			defer done()
			w := cleanup.NewWorker(nil, q, parked, cleanup.WorkerOptions{MaxAttempts: cli.cfg.CleanupMaxAttempts}, logging.Component(cli.log, "cleanup"))
			total := 0
			for {
				n, err := w.Requeue(cmd.Context())
				total += n
				if err != nil {
					return err
				}
				if n == 0 {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s)\n", total)
			return nil
		},
	}
}

func (cli *commandLine) withAccounts(ctx context.Context, fn func(*account.Service) error) error {
	repos, err := cli.openStore(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()
	return fn(account.NewService(repos.Accounts, nil, nil, account.Options{}, logging.Component(cli.log, "account")))
}

// promptPassword reads a password without echo from a terminal, or one line from piped stdin.
func promptPassword(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	var pwd string
	if f, ok := in.(*os.File); ok && isTerminalFunc(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
		raw, err := readPasswordFunc(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		pwd = string(raw)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		pwd = strings.TrimRight(line, "\r\n")
	}
	if pwd == "" {
		return "", errEmptyPassword
	}
	return pwd, nil
}
