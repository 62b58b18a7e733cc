package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ning0612/devmanager/internal/config"
	"github.com/Ning0612/devmanager/internal/idgen"
	"github.com/Ning0612/devmanager/internal/logger"
)

func newGenIDCmd(a *app) *cobra.Command {
	var (
		length   int
		out      string
		template string
		lower    bool
	)

	cmd := &cobra.Command{
		Use:   "genid",
		Short: "Generate a device ID, optionally rendered into an NVS template",
		Long: `Generate a short hexadecimal ID from a random UUID.

When the template file exists, every {UID} in it is replaced by the ID and
the result is written; otherwise the bare ID is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gc := a.cfg.GenID
			flags := cmd.Flags()
			if flags.Changed("len") {
				gc.Length = length
			}
			if flags.Changed("tpl") {
				gc.Template = template
			}
			if flags.Changed("lower") {
				gc.Lower = lower
			}

			id, text, err := idgen.Produce(gc.Length, !gc.Lower, config.ExpandPath(gc.Template))
			if err != nil {
				return err
			}

			if out == "" {
				if !strings.HasSuffix(text, "\n") {
					text += "\n"
				}
				_, err := fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}

			if err := idgen.WriteFile(out, text); err != nil {
				return err
			}
			logger.Get().Info("id generated", "id", id, "out", out)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&length, "len", "l", 6, "number of hex characters (1-32)")
	flags.StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	flags.StringVarP(&template, "tpl", "f", "", "template file with a {UID} placeholder (default from config: nvs_flash.csv)")
	flags.BoolVar(&lower, "lower", false, "use lower-case hex")
	return cmd
}
