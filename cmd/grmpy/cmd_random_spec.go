package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/grmpy-go/internal/model"
)

func newRandomSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "random-spec",
		Short: "Write a randomly generated model spec",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, _ := cmd.Flags().GetUint64("seed")
			out, _ := cmd.Flags().GetString("out")
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			spec := model.RandomSpec(model.NewRand(seed))
			if err := model.Save(out, spec); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seed %d\t%s\n", seed, out)
			return nil
		},
	}

	cmd.Flags().Uint64("seed", 0, "Generator seed (default: current time)")
	cmd.Flags().String("out", "", "Spec file to write (.yaml)")
	cmd.MarkFlagRequired("out")
	return cmd
}
