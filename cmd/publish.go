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

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/nats-io/nats-console/console"
	"github.com/nats-io/nats-console/console/models"
)

// SendMode is the value of the --mode flag.
type SendMode enumflag.Flag

const (
	SendModePublish SendMode = iota
	SendModeRequest
	SendModeJetStream
)

var sendModeIds = map[SendMode][]string{
	SendModePublish:   {string(models.Publish)},
	SendModeRequest:   {string(models.Request)},
	SendModeJetStream: {string(models.JetStream), "js"},
}

type publishFlags struct {
	vars    map[string]string
	custom  bool
	subject string
	payload string
	reply   string
	stream  string
	mode    SendMode
}

func (a *app) publishCmd() *cobra.Command {
	pf := &publishFlags{}
	cmd := &cobra.Command{
		Use:   "publish [template]",
		Short: "Connect to the active server and send a template or a custom message",
		Long: "The template is looked up by id, then by name. With --custom the message is " +
			"built from --subject, --payload and --mode instead. The history entry is printed as JSON.",
		Args: func(cmd *cobra.Command, args []string) error {
			if pf.custom {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPublish(cmd, args, pf)
		},
	}

	cmd.Flags().StringToStringVar(&pf.vars, "var", nil, "Template variable override as key=value, repeatable.")
	cmd.Flags().BoolVar(&pf.custom, "custom", false, "Send a custom message instead of a template.")
	cmd.Flags().StringVar(&pf.subject, "subject", "", "Subject of a custom message.")
	cmd.Flags().StringVar(&pf.payload, "payload", "", "Payload of a custom message.")
	cmd.Flags().StringVar(&pf.reply, "reply", "", "Response topic recorded with a custom message.")
	cmd.Flags().StringVar(&pf.stream, "stream", "", "Expected stream of a jetstream publish.")
	cmd.Flags().Var(
		enumflag.New(&pf.mode, "mode", sendModeIds, enumflag.EnumCaseInsensitive),
		"mode", "Custom message mode: publish, request or jetstream.")
	return cmd
}

func (a *app) runPublish(cmd *cobra.Command, args []string, pf *publishFlags) error {
	logger, err := a.newLogger()
	if err != nil {
		return err
	}
	opts := a.getConsoleOpts(logger)
	c, err := console.NewConsole(*opts)
	if err != nil {
		return err
	}
	if err := c.Store().Load(); err != nil {
		return err
	}

	var tmpl models.TopicTemplate
	if !pf.custom {
		var ok bool
		if tmpl, ok = c.Store().TopicByName(args[0]); !ok {
			return fmt.Errorf("template %q not found", args[0])
		}
	}

	ctx := cmd.Context()
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()

	var entry models.HistoryEntry
	if pf.custom {
		entry, err = c.Dispatcher().DispatchCustom(ctx, console.CustomMessage{
			Subject:       pf.subject,
			Payload:       pf.payload,
			MessageType:   models.MessageType(sendModeIds[pf.mode][0]),
			ResponseTopic: pf.reply,
			StreamName:    pf.stream,
		})
	} else {
		entry, err = c.Dispatcher().DispatchTemplate(ctx, tmpl, pf.vars)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if entry.Failed() {
		return errors.New(entry.Error)
	}
	return nil
}
