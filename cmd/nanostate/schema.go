package main

import (
	"fmt"

	"github.com/arthur-debert/nanostate/nanostate/storage"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (cli *CLI) newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Schema file tools",
	}

	validate := &cobra.Command{
		Use:   "validate <schema.yaml>...",
		Short: "Check that schema files are well formed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				s, err := storage.LoadSchema(path)
				if err != nil {
					failed++
					fmt.Fprintf(cli.errOut, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cli.out, "%s: ok (%s, %d fields)\n", path, s.Name(), s.Len())
			}
			if failed > 0 {
				return errors.Newf("%d of %d schema files are invalid", failed, len(args))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <schema.yaml>",
		Short: "Print a schema with defaults filled in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := storage.LoadSchema(args[0])
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s)
			if err != nil {
				return errors.Wrap(err, "failed to encode schema")
			}
			_, err = cli.out.Write(data)
			return err
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}
