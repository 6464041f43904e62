package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Kevin-nav/AskTheSage/internal/profile"
	"github.com/Kevin-nav/AskTheSage/server"
	"github.com/Kevin-nav/AskTheSage/store"
	"github.com/Kevin-nav/AskTheSage/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "asksage",
	Short: "An adaptive quiz service with spaced repetition and cached rendering",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		instanceProfile, st, err := bootstrap(ctx)
		if err != nil {
			return err
		}

		s, err := server.NewServer(ctx, instanceProfile, st)
		if err != nil {
			return err
		}

		signalChan := make(chan os.Signal, 1)
		signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-signalChan
			slog.Info("received signal, shutting down", "signal", sig)
			s.Shutdown(ctx)
			cancel()
		}()

		if err := s.Start(ctx); err != nil {
			if ctx.Err() == nil {
				return err
			}
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	viper.SetEnvPrefix("asksage")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().String("mode", "", `server mode, "dev" or "prod"`)
	rootCmd.PersistentFlags().String("addr", "", "binding address")
	rootCmd.PersistentFlags().Int("port", 0, "binding port")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "", `database driver, "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(newLoadCommand())
}

// bootstrap builds the profile, opens the database, and runs migrations.
func bootstrap(ctx context.Context) (*profile.Profile, *store.Store, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, nil, err
	}

	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(driver, instanceProfile)
	if err := st.Migrate(ctx); err != nil {
		return nil, nil, err
	}
	return instanceProfile, st, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
