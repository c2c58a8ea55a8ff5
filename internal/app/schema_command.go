package app

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	clierr "github.com/ethkit/ethkit/internal/errors"
	"github.com/ethkit/ethkit/internal/schema"
)

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "schema [COMMAND...]",
		Short:  "Print a machine-readable description of the command tree",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := schema.Describe(s.root, strings.Join(args, " "))
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "describe command", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		},
	}
}
