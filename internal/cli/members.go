package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/roach88/syncedhp/internal/engine"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <participant> <group>",
		Short: "Add an online participant to a group",
		Long: `Add a participant to a group. The participant must be online in the
configured session and must not already belong to a group. Their vitality
is set to the group's.

Example:
  syncedhp add Steve Alpha --session session.yaml`,
		Args:          exactArgs(2, "The command requires a group and a participant as argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, group := args[0], args[1]
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.AddParticipant(ctx, name, group); err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return formatter(cmd, rootOpts).Success(map[string]string{"participant": name, "group": group})
				}
				return formatter(cmd, rootOpts).Success(fmt.Sprintf("Participant '%s' has been added to group '%s'!", name, group))
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <participant>",
		Short: "Remove a participant from their group",
		Long: `Remove a participant from their group.

An online participant is matched by identity. Anyone else is matched by the
display name stored with their record; when several records share the name,
the most recently active one is removed.

Example:
  syncedhp remove Steve`,
		Args:          exactArgs(1, "The command requires an argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				if err := s.engine.RemoveParticipant(ctx, args[0]); err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return formatter(cmd, rootOpts).Success(map[string]string{"removed": args[0]})
				}
				return formatter(cmd, rootOpts).Success(fmt.Sprintf("Participant '%s' has been removed from their group!", args[0]))
			})
		},
	}
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Table bool
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <group>",
		Short: "List the members of a group",
		Long: `List the stored members of a group, online or not.

Example:
  syncedhp list Alpha
  syncedhp list Alpha --table`,
		Args:          exactArgs(1, "The command requires an argument!"),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			group := args[0]
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				members, err := s.engine.ListMembers(ctx, group)
				if err != nil {
					return err
				}
				return outputMembers(cmd, opts, group, members)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Table, "table", false, "show identities and last activity as a table")

	return cmd
}

func outputMembers(cmd *cobra.Command, opts *ListOptions, group string, members []engine.MemberInfo) error {
	f := formatter(cmd, opts.RootOptions)
	switch {
	case opts.Format == "json":
		if members == nil {
			members = []engine.MemberInfo{}
		}
		return f.Success(members)
	case len(members) == 0:
		return f.Success(fmt.Sprintf("No participant is added to group '%s'!", group))
	case !opts.Table:
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = m.Name
		}
		return f.Success(fmt.Sprintf("The participants: %s are assigned to group '%s'!", strings.Join(names, ", "), group))
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Name", "ID", "Last Login", "Online")
	for _, m := range members {
		online := "no"
		if m.Online {
			online = "yes"
		}
		if err := table.Append([]string{m.Name, m.ID.String(), m.LastLogin.Format(engine.TimestampLayout), online}); err != nil {
			return err
		}
	}
	return table.Render()
}
