// Copyright 2026 The NATS Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd is the cli entrypoint for nats-console
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/thediveo/enumflag/v2"

	"github.com/nats-io/nats-console/console"
)

// LogLevel is the value of the --log-level flag.
type LogLevel enumflag.Flag

const (
	LogLevelInfo LogLevel = iota
	LogLevelDebug
	LogLevelTrace
	LogLevelWarn
	LogLevelError
)

var logLevelIds = map[LogLevel][]string{
	LogLevelInfo:  {"info"},
	LogLevelDebug: {"debug"},
	LogLevelTrace: {"trace"},
	LogLevelWarn:  {"warn", "warning"},
	LogLevelError: {"error"},
}

// app holds the state of one command tree. Each tree gets its own viper
// instance so flags, env and config file never leak between runs.
type app struct {
	v        *viper.Viper
	cfgFile  string
	logLevel LogLevel
}

// NewRootCmd builds the nats-console command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	return a.rootCmd()
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nats-console",
		Short: "Management console for NATS",
		Long: "nats-console keeps NATS server profiles, message templates and variables, " +
			"and publishes, requests and subscribes through an HTTP API.",
		RunE:    a.run,
		Version: "v0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		SilenceUsage: true,
	}

	// config
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./nats-console.yaml)")

	// state
	root.PersistentFlags().String("state", console.DefaultStateFile, "File the servers, templates and variables are kept in.")

	// request-timeout
	root.PersistentFlags().Duration("request-timeout", console.DefaultRequestTimeout, "How long a request waits for its reply.")

	// log-level
	root.PersistentFlags().Var(
		enumflag.New(&a.logLevel, "level", logLevelIds, enumflag.EnumCaseInsensitive),
		"log-level", "Log level: trace, debug, info, warn or error.")

	// port
	root.Flags().IntP("port", "p", console.DefaultListenPort, "Port to listen on.")

	// addr
	root.Flags().StringP("addr", "a", console.DefaultListenAddress, "Network host to listen on.")

	// watch-state
	root.Flags().Bool("watch-state", false, "Reload the state file when another process changes it.")

	// connect
	root.Flags().Bool("connect", false, "Connect to the active server on start.")

	// history-size
	root.Flags().Int("history-size", console.DefaultHistorySize, "Number of dispatches kept in the history.")

	// subscription-messages
	root.Flags().Int("subscription-messages", console.DefaultSubscriptionMessages, "Number of received messages kept for subscriptions.")

	// http-tlscert
	root.Flags().String("http-tlscert", "", "Server certificate file (Enables HTTPS).")

	// http-tlskey
	root.Flags().String("http-tlskey", "", "Private key for server certificate (used with HTTPS).")

	// http-tlscacert
	root.Flags().String("http-tlscacert", "", "Client certificate CA for verification (used with HTTPS).")

	// http-user
	root.Flags().String("http-user", "", "Enable basic auth and set user name for the API and metrics.")

	// http-pass
	root.Flags().String("http-pass", "", "Set the password for the API and metrics. NATS bcrypt supported.")

	a.bindFlags(root.PersistentFlags())
	a.bindFlags(root.Flags())

	root.AddCommand(a.exportCmd(), a.importCmd(), a.publishCmd())
	return root
}

// bindFlags makes every flag of fs a viper key of the same name, so env and
// config file can set it too.
func (a *app) bindFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		a.v.BindPFlag(f.Name, f)
	})
}

func (a *app) initConfig() error {
	a.v.SetEnvPrefix("nats_console")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.SetConfigName("nats-console")
		a.v.AddConfigPath("/etc/nats-console")
		a.v.AddConfigPath(".")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	} else {
		logrus.Debugf("using config: %s", a.v.ConfigFileUsed())
	}
	return nil
}

func (a *app) newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(level)
	logger.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		FieldsOrder:     []string{"component", "subject"},
	})
	return logger, nil
}

func (a *app) getConsoleOpts(logger *logrus.Logger) *console.Options {
	opts := console.GetDefaultOptions()
	opts.ListenPort = a.v.GetInt("port")
	opts.ListenAddress = a.v.GetString("addr")
	opts.StateFile = a.v.GetString("state")
	opts.WatchState = a.v.GetBool("watch-state")
	opts.RequestTimeout = a.v.GetDuration("request-timeout")
	opts.HistorySize = a.v.GetInt("history-size")
	opts.SubscriptionMessages = a.v.GetInt("subscription-messages")
	opts.HTTPCertFile = a.v.GetString("http-tlscert")
	opts.HTTPKeyFile = a.v.GetString("http-tlskey")
	opts.HTTPCaFile = a.v.GetString("http-tlscacert")
	opts.HTTPUser = a.v.GetString("http-user")
	opts.HTTPPassword = a.v.GetString("http-pass")
	opts.Logger = logger

	return opts
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	logger, err := a.newLogger()
	if err != nil {
		return err
	}
	opts := a.getConsoleOpts(logger)

	c, err := console.NewConsole(*opts)
	if err != nil {
		return fmt.Errorf("couldn't start console: %v", err)
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("couldn't start console: %s", err)
	}

	if a.v.GetBool("connect") {
		ctx, cancel := context.WithTimeout(cmd.Context(), console.DefaultConnectTimeout)
		if err := c.Connect(ctx); err != nil {
			logger.Warnf("couldn't connect to the active server: %v", err)
		}
		cancel()
	}

	// Setup the interrupt handler to gracefully exit.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	for sig := range sigs {
		switch sig {
		case syscall.SIGQUIT:
			buf := make([]byte, 1<<20)
			stacklen := runtime.Stack(buf, true)
			fmt.Fprintln(os.Stderr, string(buf[:stacklen]))

		default:
			logger.Infof("received %s, stopping", sig)
			c.Stop()
			return nil
		}
	}
	return nil
}
