package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
)

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <group>",
		Short: "Create a group at full vitality",
		Long: `Create a new group. The group starts at full vitality with no members.

Example:
  syncedhp create Alpha`,
		Args:          exactArgs(1, "The command requires an argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				info, err := s.engine.CreateGroup(ctx, args[0])
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return formatter(cmd, rootOpts).Success(info)
				}
				return formatter(cmd, rootOpts).Success(fmt.Sprintf("Group '%s' has been created!", info.Name))
			})
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group>",
		Short: "Delete a group and all its member records",
		Long: `Delete a group. Its members leave the group and keep their own vitality.
Groups stored after it move up one position.

Example:
  syncedhp delete Alpha`,
		Args:          exactArgs(1, "The command requires an argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.DeleteGroup(ctx, args[0]); err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return formatter(cmd, rootOpts).Success(map[string]string{"deleted": args[0]})
				}
				return formatter(cmd, rootOpts).Success(fmt.Sprintf("Group '%s' has been deleted!", args[0]))
			})
		},
	}
}

// NewGroupsCommand creates the groups command.
func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List every group with its vitality and member counts",
		Long: `List every group in stored order.

Online counts reflect the participants of the configured session.

Example:
  syncedhp groups
  syncedhp groups --session session.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				groups, err := s.engine.Groups()
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return formatter(cmd, rootOpts).Success(groups)
				}
				if len(groups) == 0 {
					return formatter(cmd, rootOpts).Success("No groups exist yet!")
				}
				return renderGroups(cmd, groups)
			})
		},
	}
}

func renderGroups(cmd *cobra.Command, groups []engine.GroupInfo) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("#", "Name", "Vitality", "Members", "Online")
	for i, g := range groups {
		if err := table.Append([]string{
			strconv.Itoa(i + 1),
			g.Name,
			strconv.FormatFloat(g.Vitality, 'f', 1, 64),
			strconv.Itoa(g.Members),
			strconv.Itoa(g.Online),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
