package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/royteeuwen/slice/resource/memory"
	"github.com/royteeuwen/slice/resource/redistree"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Copy a YAML content tree into Redis",
	Long:  `Loads the YAML tree in <file> and writes every node into the Redis backend named in the config file.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		root, _ := cmd.Flags().GetString("root")

		src, err := memory.LoadFile(args[0])
		if err != nil {
			return err
		}

		dst := redistree.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redistree.WithPrefix(cfg.Redis.Prefix))
		defer dst.Close()

		if err := dst.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
		if err := dst.Import(cmd.Context(), src, root); err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}

		logger.Info("imported content tree", "file", args[0], "nodes", src.Len(), "redis", cfg.Redis.Addr)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("root", "/", "Subtree to import")
}
