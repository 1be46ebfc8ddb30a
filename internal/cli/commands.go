package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/GriffinCanCode/PortableShelf/internal/shared/types"
)

// filterValue lets --filter be validated by pflag.
type filterValue types.Filter

var _ pflag.Value = (*filterValue)(nil)

func (f *filterValue) String() string { return string(*f) }
func (f *filterValue) Type() string   { return "filter" }

func (f *filterValue) Set(s string) error {
	parsed, err := types.ParseFilter(s)
	if err != nil {
		return err
	}
	*f = filterValue(parsed)
	return nil
}

func (c *CLI) listCmd() *cobra.Command {
	filter := filterValue(types.FilterAll)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered apps",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printQuery(cmd, types.Filter(filter), "")
		},
	}
	cmd.Flags().VarP(&filter, "filter", "f", "all, favorites or recent")
	return cmd
}

func (c *CLI) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "List apps whose name contains term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printQuery(cmd, types.FilterAll, args[0])
		},
	}
}

func (c *CLI) favoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorite apps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printQuery(cmd, types.FilterFavorites, "")
		},
	}
}

func (c *CLI) recentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recent",
		Short: fmt.Sprintf("List the %d most recently launched apps", types.RecentLimit),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printQuery(cmd, types.FilterRecent, "")
		},
	}
}

func (c *CLI) printQuery(cmd *cobra.Command, filter types.Filter, search string) error {
	apps, err := c.service.List(cmd.Context(), filter, search)
	if err != nil {
		return failed(err)
	}
	if c.jsonOut {
		return writeJSON(c.out, apps)
	}
	renderApps(c.out, newStyles(c.out), apps)
	return nil
}

func (c *CLI) launchCmd() *cobra.Command {
	var admin bool
	cmd := &cobra.Command{
		Use:   "launch <name>",
		Short: "Launch the first app whose name contains name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := c.service.Find(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}
			res, err := c.service.Launch(cmd.Context(), target.Name, admin)
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, res)
			}

			st := newStyles(c.out)
			mode := ""
			if res.Elevated {
				mode = " as administrator"
			}
			fmt.Fprintf(c.out, "%s %s%s %s\n",
				st.Success.Render("Launched"), res.Name, mode,
				st.Muted.Render(fmt.Sprintf("(pid %d, run #%d)", res.PID, res.RunCount)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&admin, "admin", "a", false, "Run with elevated privileges")
	return cmd
}

func (c *CLI) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Copy an executable into the apps directory and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, err := c.service.Add(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, added)
			}
			st := newStyles(c.out)
			fmt.Fprintf(c.out, "%s %s %s\n", st.Success.Render("Added"), added.Name, st.Muted.Render("→ "+added.Path))
			return nil
		},
	}
}

func (c *CLI) removeCmd() *cobra.Command {
	var purge, yes bool
	cmd := &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Unregister an app (the file stays unless --purge)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := c.service.Find(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}

			st := newStyles(c.out)
			if purge && !yes && !c.confirm(fmt.Sprintf("Delete %s from disk?", target.Path)) {
				fmt.Fprintln(c.out, st.Muted.Render("Aborted."))
				return nil
			}

			removed, err := c.service.Remove(cmd.Context(), target.Name, purge)
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, removed)
			}
			if purge {
				fmt.Fprintf(c.out, "%s %s and deleted %s\n", st.Success.Render("Removed"), removed.Name, removed.Path)
			} else {
				fmt.Fprintf(c.out, "%s %s\n", st.Success.Render("Removed"), removed.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete the executable")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func (c *CLI) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <name>",
		Short: "Show details of the first app whose name contains name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := c.service.Find(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}
			info, err := c.service.Info(cmd.Context(), target.Name)
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, info)
			}
			renderInfo(c.out, newStyles(c.out), info)
			return nil
		},
	}
}

func (c *CLI) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Change an app's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := c.service.Find(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}
			renamed, err := c.service.Rename(cmd.Context(), target.Name, args[1])
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, renamed)
			}
			fmt.Fprintf(c.out, "%s %s to %s\n", newStyles(c.out).Success.Render("Renamed"), target.Name, renamed.Name)
			return nil
		},
	}
}

func (c *CLI) favoriteCmd() *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:     "favorite <name>",
		Aliases: []string{"fav"},
		Short:   "Mark an app as favorite",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := c.service.Find(cmd.Context(), args[0])
			if err != nil {
				return failed(err)
			}
			updated, err := c.service.SetFavorite(cmd.Context(), target.Name, !off)
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, updated)
			}
			st := newStyles(c.out)
			if updated.Favorite {
				fmt.Fprintf(c.out, "%s %s added to favorites\n", st.Star.Render("★"), updated.Name)
			} else {
				fmt.Fprintf(c.out, "%s removed from favorites\n", updated.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&off, "off", false, "Remove from favorites instead")
	return cmd
}

func (c *CLI) scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Rescan the apps directory and reconcile the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.service.Refresh(cmd.Context())
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, res)
			}

			st := newStyles(c.out)
			fmt.Fprintf(c.out, "%s %d added, %d pruned\n", st.Success.Render("Scan complete:"), len(res.Added), len(res.Pruned))
			for _, name := range res.Added {
				fmt.Fprintf(c.out, "  + %s\n", name)
			}
			for _, name := range res.Pruned {
				fmt.Fprintf(c.out, "  - %s\n", st.Muted.Render(name))
			}
			return nil
		},
	}
}

func (c *CLI) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show registry statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.service.Stats(cmd.Context())
			if err != nil {
				return failed(err)
			}
			if c.jsonOut {
				return writeJSON(c.out, stats)
			}
			renderStats(c.out, newStyles(c.out), stats)
			return nil
		},
	}
}

func (c *CLI) confirm(prompt string) bool {
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
