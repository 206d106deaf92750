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
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nats-io/nats-console/console"
)

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the servers, templates and variables of the state file to a configuration document",
		Long: "The format follows the file extension: .json, .yaml or .json.gz. " +
			"Without a file the document is written to nats-config-<date>.json, '-' writes JSON to stdout.",
		Args: cobra.MaximumNArgs(1),
		RunE: a.runExport,
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the servers, templates and variables of the state file with a configuration document",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runImport,
	}
}

// loadStore opens the state file without any broker connection.
func (a *app) loadStore() (*console.Store, *logrus.Logger, error) {
	logger, err := a.newLogger()
	if err != nil {
		return nil, nil, err
	}
	store := console.NewStore(console.NewFilePersister(a.v.GetString("state")), nil, logger)
	if err := store.Load(); err != nil {
		return nil, nil, err
	}
	return store, logger, nil
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	store, logger, err := a.loadStore()
	if err != nil {
		return err
	}
	doc := store.ExportConfig()

	name := console.ExportFilename(*doc.ExportedAt)
	if len(args) == 1 {
		name = args[0]
	}
	if name == "-" {
		return console.EncodeConfigDocument(cmd.OutOrStdout(), doc, console.FormatJSON)
	}

	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if err := console.EncodeConfigDocument(f, doc, console.FormatFromFilename(name)); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Infof("exported configuration to %s", name)
	return nil
}

func (a *app) runImport(cmd *cobra.Command, args []string) error {
	store, logger, err := a.loadStore()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := console.DecodeConfigDocument(data, console.FormatFromFilename(args[0]))
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if err := store.ImportConfig(doc); err != nil {
		return err
	}
	logger.Infof("imported %d servers and %d templates from %s", len(doc.Servers), len(doc.Topics), args[0])
	return nil
}
