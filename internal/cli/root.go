package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantrack/quantrack/internal/cli/commands"
	appconfig "github.com/quantrack/quantrack/internal/config"
	"github.com/quantrack/quantrack/internal/logger"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "quantrack",
	Short: "Quantrack - volunteer and team engagement from the terminal",
	Long: `Quantrack CLI - Talk to a Quantrack server as an admin or a volunteer.

Admins run an organization: they create events, approve members and
complete participations. Volunteers join organizations and events and
download certificates for the hours they served.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, format := "warn", "console"
		if cfg, err := appconfig.Load(); err == nil {
			level, format = cfg.Logging.Level, cfg.Logging.Format
		}
		if commands.Globals.LogLevel != "" {
			level = commands.Globals.LogLevel
		}
		logger.Init(level, format)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&commands.Globals.APIBaseURL, "api", "", "API base URL (overrides QUANTRACK_API_BASE_URL and the selected profile)")
	flags.StringVar(&commands.Globals.Profile, "profile", "", "Profile alias or URL from quantrack.json")
	flags.StringVar(&commands.Globals.LogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quantrack version %s\n", version)
		},
	})

	// Setup
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewSelectProfileCmd())

	// Account and session
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewVerifyCmd())
	rootCmd.AddCommand(commands.NewResendCodeCmd())
	rootCmd.AddCommand(commands.NewPasswordCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoAmICmd())
	rootCmd.AddCommand(commands.NewNavCmd())

	// Dashboards and resources
	rootCmd.AddCommand(commands.NewDashCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewOrgCmd())
	rootCmd.AddCommand(commands.NewEventsCmd())
	rootCmd.AddCommand(commands.NewMembersCmd())
	rootCmd.AddCommand(commands.NewParticipationsCmd())
	rootCmd.AddCommand(commands.NewCertificateCmd())
	rootCmd.AddCommand(commands.NewAnalyticsCmd())
}

// Execute runs the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
