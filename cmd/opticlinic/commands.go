package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opticlinic/opticlinic/cmd/opticlinic/cli"
	"github.com/opticlinic/opticlinic/internal/app"
	"github.com/opticlinic/opticlinic/internal/auth"
	"github.com/opticlinic/opticlinic/internal/platform/db"
	"github.com/opticlinic/opticlinic/jobs"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			n, err := db.Migrate(cmd.Context(), rt.pool, rt.logger)
			if err != nil {
				return err
			}
			rt.logger.Info("migrations complete", slog.Int("applied", n))
			return nil
		},
	}
}

func backfillCmd() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "backfill-legacy",
		Short: "Link legacy invoices to patients and classify their direction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			services := app.NewServices(rt.cfg, rt.pool, nil, nil, rt.logger)
			report, err := services.Billing.BackfillLegacy(cmd.Context(), batch)
			if err != nil {
				return err
			}
			rt.logger.Info("legacy backfill complete",
				slog.Int("scanned", report.Scanned),
				slog.Int("patients_linked", report.PatientsLinked),
				slog.Int("unresolved", report.Unresolved),
				slog.Int("classified", report.Classified),
				slog.Int("expenditures", report.Expenditures))
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 500, "rows per transaction")
	return cmd
}

func createUserCmd() *cobra.Command {
	var in auth.NewUserInput
	var role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a back-office user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()
			in.Role = auth.Role(role)
			services := app.NewServices(rt.cfg, rt.pool, nil, nil, rt.logger)
			user, err := services.Auth.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) %s\n", user.Email, user.Role, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleStaff), "admin, manager or staff")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger background jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:       "trigger <task>",
		Short:     "Enqueue a background task now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: jobs.Known,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			jc := cli.NewJobsCLI(cfg.RedisAddr)
			defer func() { _ = jc.Close() }()
			info, err := jc.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show default queue depth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			jc := cli.NewJobsCLI(cfg.RedisAddr)
			defer func() { _ = jc.Close() }()
			stats, err := jc.InspectQueue()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
			return nil
		},
	})
	return cmd
}
