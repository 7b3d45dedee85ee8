package main

import (
	"fmt"

	"arenahub/internal/core/domain"
	"arenahub/internal/infrastructure/monitoring"
	"arenahub/internal/infrastructure/repositories"
	"arenahub/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type createAdminOptions struct {
	email    string
	password string
	role     string
}

// NewCreateAdminCmd creates the create-admin subcommand. Admin accounts have
// no self-service signup, so this is how the first super admin is made.
func NewCreateAdminCmd() *cobra.Command {
	opts := &createAdminOptions{}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCreateAdmin(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.email, "email", "", "admin email")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password")
	cmd.Flags().StringVar(&opts.role, "role", string(domain.RoleSuperAdmin), "moderator, admin or super_admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runCreateAdmin(cmd *cobra.Command, opts *createAdminOptions) error {
	role := domain.Role(opts.role)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", opts.role)
	}
	if len(opts.password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("create-admin needs database.enabled=true; in-memory admins vanish on exit")
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	ctx := cmd.Context()
	factory, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer factory.Close()

	metrics := monitoring.NewPrometheusCollector(prometheus.NewRegistry())
	auth, gate, err := buildAuthenticator(cfg, factory, metrics, log)
	if err != nil {
		return err
	}
	defer gate.Stop()

	admin, err := auth.CreateAdmin(ctx, opts.email, opts.password, role)
	if err != nil {
		return err
	}

	cmd.Printf("Created %s %s (%s)\n", admin.Role, admin.Email, admin.ID)
	return nil
}
