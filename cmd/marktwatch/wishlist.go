package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pbaille/marktwatch/internal/wishlist"
)

func wishlistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wishlist",
		Short: "Inspect the wishlist file",
	}
	cmd.AddCommand(wishlistCheckCmd())
	cmd.AddCommand(wishlistInitCmd())
	return cmd
}

func wishlistCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Parse the wishlist and report invalid lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			entries, warnings, err := wishlist.Load(cfg.WishlistFile)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Keyword", "Max price"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Keyword, "€" + e.Ceiling.Label()})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()

			for _, w := range warnings {
				fmt.Printf("skipped %s\n", w)
			}
			fmt.Printf("%d entries, %d skipped lines\n", len(entries), len(warnings))
			return nil
		},
	}
}

func wishlistInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if _, err := os.Stat(cfg.WishlistFile); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", cfg.WishlistFile)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat wishlist: %w", err)
			}

			if err := wishlist.WriteExample(cfg.WishlistFile); err != nil {
				return err
			}
			fmt.Printf("Wrote example wishlist to %s\n", cfg.WishlistFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing wishlist")
	return cmd
}
