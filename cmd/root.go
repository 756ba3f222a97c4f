/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/ademuri/watch-log-tools/internal/access"
	"github.com/ademuri/watch-log-tools/internal/docstore"
	"github.com/ademuri/watch-log-tools/internal/logging"
	"github.com/ademuri/watch-log-tools/internal/store"
	"github.com/ademuri/watch-log-tools/internal/tmdb"
)

var cfgFile string
var databasePath string
var raterID string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "watch-log-tools",
	Short: "Keeps a family log of movie and TV viewings",
	Long: `Logs who watched what and how scary it was, then ranks movies, shows
and episodes by any rating dimension.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.watch-log-tools.yaml)")

	rootCmd.PersistentFlags().StringVarP(
		&raterID, "user", "u", "", "Rater id to act as")
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	var email string
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "Email address of the acting rater, checked against allowed_emails")
	viper.BindPFlag("email", rootCmd.PersistentFlags().Lookup("email"))

	rootCmd.PersistentFlags().StringVarP(
		&databasePath, "database", "d", "./watchlog.db", "Path to the SQLite database")
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("database"))

	var backend string
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "sqlite", "Viewing store: sqlite or mongo")
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))

	var mongoURI string
	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo_uri", "mongodb://localhost:27017", "MongoDB connection string, used with --backend=mongo")
	viper.BindPFlag("mongo_uri", rootCmd.PersistentFlags().Lookup("mongo_uri"))

	var mongoDatabase string
	rootCmd.PersistentFlags().StringVar(&mongoDatabase, "mongo_database", docstore.DefaultDatabase, "MongoDB database name")
	viper.BindPFlag("mongo_database", rootCmd.PersistentFlags().Lookup("mongo_database"))

	var redisAddr string
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis_addr", "", "Redis address for caching TMDB responses (default is in-memory)")
	viper.BindPFlag("redis_addr", rootCmd.PersistentFlags().Lookup("redis_addr"))

	var tmdbAPIKey string
	rootCmd.PersistentFlags().StringVar(&tmdbAPIKey, "tmdb_api_key", "", "TMDB API key")
	viper.BindPFlag("tmdb_api_key", rootCmd.PersistentFlags().Lookup("tmdb_api_key"))

	var tmdbBaseURL string
	rootCmd.PersistentFlags().StringVar(&tmdbBaseURL, "tmdb_base_url", tmdb.DefaultBaseURL, "TMDB API base URL")
	viper.BindPFlag("tmdb_base_url", rootCmd.PersistentFlags().Lookup("tmdb_base_url"))

	var allowed []string
	rootCmd.PersistentFlags().StringSliceVar(&allowed, "allowed_emails", nil, "Email addresses allowed to write to the log")
	viper.BindPFlag("allowed_emails", rootCmd.PersistentFlags().Lookup("allowed_emails"))

	var from string
	rootCmd.PersistentFlags().StringVar(&from, "from", "", "From email address")
	viper.BindPFlag("from", rootCmd.PersistentFlags().Lookup("from"))

	var sendgridKey string
	rootCmd.PersistentFlags().StringVar(&sendgridKey, "sendgrid_api_key", "", "SendGrid API key")
	viper.BindPFlag("sendgrid_api_key", rootCmd.PersistentFlags().Lookup("sendgrid_api_key"))

	var logLevel string
	rootCmd.PersistentFlags().StringVar(&logLevel, "log_level", "warn", "Log level: trace, debug, info, warn, error")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log_level"))

	var logFormat string
	rootCmd.PersistentFlags().StringVar(&logFormat, "log_format", "console", "Log format: console or json")
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log_format"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".watch-log-tools" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".watch-log-tools")
	}

	viper.SetEnvPrefix("WATCHLOG")
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	readErr := viper.ReadInConfig()

	logging.Init(logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	})
	if readErr == nil {
		logging.Info().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}

// openBackend opens the configured viewing store.
func openBackend(ctx context.Context) (store.Backend, error) {
	switch strings.ToLower(viper.GetString("backend")) {
	case "", "sqlite":
		db, err := store.New(viper.GetString("database"))
		if err != nil {
			return nil, err
		}
		return db, nil
	case "mongo":
		db, err := docstore.New(ctx, viper.GetString("mongo_uri"), viper.GetString("mongo_database"))
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown backend %q", viper.GetString("backend"))
}

func newTMDBClient() *tmdb.Client {
	var opts []tmdb.Option
	if u := viper.GetString("tmdb_base_url"); u != "" {
		opts = append(opts, tmdb.WithBaseURL(u))
	}
	if addr := viper.GetString("redis_addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: strings.TrimPrefix(addr, "redis://")})
		opts = append(opts, tmdb.WithCache(tmdb.NewRedisCache(rdb, tmdb.DefaultCacheTTL)))
	} else {
		opts = append(opts, tmdb.WithCache(tmdb.NewMemoryCache(tmdb.DefaultCacheTTL)))
	}
	return tmdb.New(viper.GetString("tmdb_api_key"), opts...)
}

// newResolver returns nil when no TMDB key is configured; callers then skip
// metadata lookups.
func newResolver() *tmdb.Resolver {
	if viper.GetString("tmdb_api_key") == "" {
		return nil
	}
	return tmdb.NewResolver(newTMDBClient())
}

func allowlist() *access.Allowlist {
	return access.NewAllowlist(viper.GetStringSlice("allowed_emails"))
}

func requireUser(cmd *cobra.Command, args []string) error {
	if viper.GetString("user") == "" {
		return fmt.Errorf("required flag(s) \"user\" not set")
	}
	return nil
}
