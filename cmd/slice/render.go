package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/royteeuwen/slice"
	"github.com/royteeuwen/slice/internal/models"
)

var renderCmd = &cobra.Command{
	Use:   "render <model> <path>",
	Short: "Render one model as JSON",
	Long:  `Builds the model registered as <model> (e.g. page, teaser, node) at <path> and prints it as JSON.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		tree, closer, err := openTree(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		c, err := newContainer()
		if err != nil {
			return err
		}
		defer c.Shutdown(context.Background())

		stack := slice.NewExecutionContextStack()
		scope := slice.NewContextScope(slice.NewContextProvider())
		provider := slice.NewModelProvider(c, scope, models.Mapper(c), stack,
			slice.WithContext(cmd.Context()),
			slice.WithResolver(tree),
			slice.WithLogger(logger),
		)

		model, err := provider.GetByName(args[0], args[1])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
